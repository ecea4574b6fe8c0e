package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/andrej220/prefstore/internal/app"
	"github.com/andrej220/prefstore/internal/lg"
	"github.com/andrej220/prefstore/pkg/config"
)

const SERVICENAME = "prefshell"

type flags struct {
	log        *lg.Config
	backend    string
	configPath string
	mongo      config.MongoConfig
	brokers    string
	topic      string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet(SERVICENAME, flag.ContinueOnError)
	f := &flags{log: lg.RegisterFlags(fs, SERVICENAME)}

	fs.StringVar(&f.backend, "backend", string(config.FileStore), "configuration backend: file or mongo")
	fs.StringVar(&f.configPath, "config", "", "configuration file (default <user config dir>/prefshell/config.yaml)")
	fs.StringVar(&f.mongo.URI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	fs.StringVar(&f.mongo.DBName, "mongo-db", "prefstore", "MongoDB database")
	fs.StringVar(&f.mongo.CollName, "mongo-collection", "config", "MongoDB collection")
	fs.StringVar(&f.mongo.ID, "mongo-id", SERVICENAME, "document id of the configuration")
	fs.StringVar(&f.brokers, "kafka-brokers", "", "comma separated Kafka brokers; enables change publishing")
	fs.StringVar(&f.topic, "kafka-topic", "prefstore.changes", "Kafka topic for change events")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *flags) options() (config.Options, error) {
	opts := config.Options{Backend: config.StoreType(f.backend)}
	switch opts.Backend {
	case config.FileStore:
		path := f.configPath
		if path == "" {
			p, err := config.DefaultPath(SERVICENAME)
			if err != nil {
				return opts, err
			}
			path = p
		}
		opts.File = &config.FileConfig{Path: path}
	case config.MongoStore:
		opts.Mongo = &f.mongo
	}
	if f.brokers != "" {
		opts.Kafka = &config.KafkaConfig{
			Brokers: strings.Split(f.brokers, ","),
			Topic:   f.topic,
		}
	}
	return opts, opts.Validate()
}

func run(ctx context.Context, args []string) error {
	f, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	logger := lg.New(f.log)
	defer logger.Sync()

	opts, err := f.options()
	if err != nil {
		logger.Error("invalid configuration options", lg.Err(err))
		return err
	}

	store, err := config.Open(ctx, opts, config.WithLogger(logger.With(lg.String("backend", string(opts.Backend)))))
	if err != nil {
		logger.Error("failed to open configuration store", lg.Err(err))
		return err
	}

	return app.NewShell(store, app.Headless{}, logger).Run(ctx)
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", SERVICENAME, err)
		os.Exit(1)
	}
}
