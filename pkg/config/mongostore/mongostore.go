package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrej220/prefstore/pkg/config/configstore"
	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Ensure MongoStore implements the ConfigStore interface
var _ configstore.ConfigStore = (*MongoStore)(nil)

const (
	connectTimeout   = 10 * time.Second
	operationTimeout = 10 * time.Second
)

type Config struct {
	URI      string `yaml:"uri" json:"uri" validate:"required,uri"`
	DBName   string `yaml:"dbName" json:"dbName" validate:"required"`
	CollName string `yaml:"collName" json:"collName" validate:"required"`
	ID       string `yaml:"id" json:"id" validate:"required"` // document ID, one per application
}

// collection is the subset of *mongo.Collection used by the store.
type collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter any, replacement any, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
}

// MongoStore keeps the whole configuration document as a single MongoDB document.
type MongoStore struct {
	Client     *mongo.Client
	Collection collection
	ID         string
	cb         *gobreaker.CircuitBreaker
}

// New connects to MongoDB and verifies the connection, retrying the ping with
// exponential backoff until ctx ends or the retry budget is spent.
func New(ctx context.Context, cfg Config) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, operationTimeout)
		defer cancel()
		return client.Ping(pingCtx, nil)
	}
	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), 5), ctx)
	if err := backoff.Retry(ping, b); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := newStore(client.Database(cfg.DBName).Collection(cfg.CollName), cfg.ID)
	store.Client = client
	return store, nil
}

func newStore(coll collection, id string) *MongoStore {
	cbs := gobreaker.Settings{
		Name:        "mongostore-" + id,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, mongo.ErrNoDocuments)
		},
	}
	return &MongoStore{
		Collection: coll,
		ID:         id,
		cb:         gobreaker.NewCircuitBreaker(cbs),
	}
}

func newBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          1.5,
		RandomizationFactor: 0.5,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}

func (m *MongoStore) Load(out any) error {
	if out == nil {
		return fmt.Errorf("Load: output parameter must not be nil")
	}
	_, err := m.cb.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()

		res := m.Collection.FindOne(ctx, bson.M{"_id": m.ID})
		if err := res.Err(); err != nil {
			return nil, err
		}
		return nil, res.Decode(out)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("Load: document %q: %w", m.ID, configstore.ErrNotFound)
	default:
		return fmt.Errorf("Load: MongoDB FindOne failed: %w", err)
	}
}

func (m *MongoStore) Save(in any) error {
	if in == nil {
		return fmt.Errorf("Save: input parameter must not be nil")
	}
	_, err := m.cb.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()

		return m.Collection.ReplaceOne(ctx, bson.M{"_id": m.ID}, in, options.Replace().SetUpsert(true))
	})
	if err != nil {
		return fmt.Errorf("Save: MongoDB ReplaceOne failed: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (m *MongoStore) Close(ctx context.Context) error {
	if m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}
