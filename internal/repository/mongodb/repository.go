package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultCollection holds one document per key.
const DefaultCollection = "kv"

// entry is the stored shape of a single key.
type entry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	Writer    string    `bson:"writer"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// changeEvent is the subset of a change stream event we read.
type changeEvent struct {
	OperationType string `bson:"operationType"`
	FullDocument  *entry `bson:"fullDocument"`
}

// MongoDBRepository is a key-value backend storing each key as a document.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
	writer   string
	logger   *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName, collName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collName == "" {
		collName = DefaultCollection
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: collName,
		writer:   uuid.NewString(),
		logger:   logger,
	}, nil
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// Get returns the value stored at key. The boolean is false when the key is absent.
func (r *MongoDBRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc entry
	err := r.collection().FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return doc.Value, true, nil
}

// Put overwrites the value stored at key.
func (r *MongoDBRepository) Put(ctx context.Context, key string, value []byte) error {
	doc := entry{Key: key, Value: value, Writer: r.writer, UpdatedAt: time.Now().UTC()}
	_, err := r.collection().ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Watch opens a change stream on key and emits whenever another writer changes it.
// Change streams require a replica set or sharded cluster.
func (r *MongoDBRepository) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: key}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := r.collection().Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream for %s: %w", key, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer func() { _ = stream.Close(context.Background()) }()

		for stream.Next(ctx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				r.logger.Warn("undecodable change event", zap.String("key", key), zap.Error(err))
				continue
			}
			if r.fromSelf(event) {
				continue
			}

			r.logger.Debug("external change detected", zap.String("key", key), zap.String("op", event.OperationType))
			select {
			case out <- struct{}{}:
			default:
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			r.logger.Error("change stream stopped", zap.String("key", key), zap.Error(err))
		}
	}()

	return out, nil
}

// fromSelf reports whether event records a write made by this repository.
// Deletes carry no document and always count as external.
func (r *MongoDBRepository) fromSelf(event changeEvent) bool {
	return event.FullDocument != nil && event.FullDocument.Writer == r.writer
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
