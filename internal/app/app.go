// Package app is the application shell: it initializes the configuration
// store once at startup and then hands control to the frontend.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrej220/prefstore/internal/lg"
	"github.com/andrej220/prefstore/pkg/config"
	"golang.org/x/sync/errgroup"
)

const DefaultShutdownTimeout = 5 * time.Second

// Frontend is the UI framework the shell hands control to. Run blocks until
// the user quits or ctx is cancelled.
type Frontend interface {
	Run(ctx context.Context) error
}

// Headless is a Frontend without a window: it waits for the context to end.
type Headless struct{}

func (Headless) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

type Shell struct {
	Store           *config.Store
	Frontend        Frontend
	Logger          lg.Logger
	ShutdownTimeout time.Duration
	Signals         []os.Signal
}

func NewShell(store *config.Store, frontend Frontend, logger lg.Logger) *Shell {
	if frontend == nil {
		frontend = Headless{}
	}
	if logger == nil {
		logger = lg.Discard
	}
	return &Shell{
		Store:           store,
		Frontend:        frontend,
		Logger:          logger,
		ShutdownTimeout: DefaultShutdownTimeout,
		Signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Run initializes configuration and runs the frontend until it returns or a
// shutdown signal arrives. The shell itself never writes to the store.
func (s *Shell) Run(ctx context.Context) error {
	s.Store.Init()
	s.Logger.Info("application started", lg.Int("config_keys", len(s.Store.Keys())))

	ctx, stop := signal.NotifyContext(lg.Attach(ctx, s.Logger), s.Signals...)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Frontend.Run(gctx)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		s.Logger.Info("shutting down", lg.Err(context.Cause(ctx)))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if cerr := s.Store.Close(closeCtx); cerr != nil {
		s.Logger.Warn("failed to close configuration store", lg.Err(cerr))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
