package sink

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"logforge/core"
)

// MongoOptions configures the MongoDB sink.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	// BatchInsertTimeout bounds each InsertMany call, in seconds.
	BatchInsertTimeout int
	MaxPoolSize        uint64
}

// MongoDB writes records into a MongoDB collection.
type MongoDB struct {
	client  *mongo.Client
	coll    *mongo.Collection
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// NewMongoDB connects to MongoDB and returns the sink.
func NewMongoDB(opts MongoOptions, logger *zap.SugaredLogger) (*MongoDB, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOptions = clientOptions.SetMaxPoolSize(opts.MaxPoolSize)
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	timeout := time.Duration(opts.BatchInsertTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	logger.Infow("Connected to MongoDB", "database", opts.Database, "collection", opts.Collection)

	return &MongoDB{
		client:  client,
		coll:    client.Database(opts.Database).Collection(opts.Collection),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Name identifies the sink.
func (s *MongoDB) Name() string { return "mongodb" }

// WriteBatch inserts the records with an unordered InsertMany so one
// rejected document does not abort the rest of the batch.
func (s *MongoDB) WriteBatch(ctx context.Context, records []*core.LogRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	for i, rec := range records {
		docs[i] = rec
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to insert batch: %w", err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoDB) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
