package tenantconn

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/tenantmodels/pkg/schema"
)

// MongoDialer opens tenant-scoped MongoDB connections on a shared endpoint.
// Each tenant gets its own client so idle eviction can close it without
// touching other tenants.
type MongoDialer struct {
	cfg Config
}

// NewMongoDialer creates a dialer from the manager configuration.
func NewMongoDialer(cfg Config) *MongoDialer {
	return &MongoDialer{cfg: cfg}
}

// Dial opens a client against the shared endpoint scoped to the given
// database and verifies it with a ping.
func (d *MongoDialer) Dial(ctx context.Context, database string) (Conn, error) {
	client, err := mongo.Connect(
		options.Client().
			ApplyURI(d.cfg.ConnectionURL).
			SetConnectTimeout(d.cfg.ConnectTimeout).
			SetMaxPoolSize(d.cfg.MaxPoolSize).
			SetMinPoolSize(d.cfg.MinPoolSize).
			SetRetryWrites(d.cfg.RetryWrites).
			SetRetryReads(d.cfg.RetryReads),
	)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return &MongoConn{client: client, db: client.Database(database)}, nil
}

// MongoConn is the mongo-backed transport handle. CRUD callers reach the
// driver through Database.
type MongoConn struct {
	client *mongo.Client
	db     *mongo.Database
}

// Client returns the underlying driver client.
func (c *MongoConn) Client() *mongo.Client { return c.client }

// Database returns the tenant-scoped database handle.
func (c *MongoConn) Database() *mongo.Database { return c.db }

// Ping verifies connectivity.
func (c *MongoConn) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, nil)
}

// EnsureIndexes creates the declared indexes on the collection. Index
// creation in MongoDB is idempotent for identical definitions.
func (c *MongoConn) EnsureIndexes(ctx context.Context, collection string, indexes []schema.Index) error {
	if len(indexes) == 0 {
		return nil
	}

	models := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := make(bson.D, 0, len(idx.Keys))
		for _, k := range idx.Keys {
			keys = append(keys, bson.E{Key: k.Field, Value: k.Direction})
		}
		opts := options.Index()
		if idx.Unique {
			opts = opts.SetUnique(true)
		}
		if idx.Name != "" {
			opts = opts.SetName(idx.Name)
		}
		models = append(models, mongo.IndexModel{Keys: keys, Options: opts})
	}

	_, err := c.db.Collection(collection).Indexes().CreateMany(ctx, models)
	return err
}

// Close disconnects the client.
func (c *MongoConn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
