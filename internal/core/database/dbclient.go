package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/markdave123-py/outreach/internal/config"
)

// Collection names are shared with deployments created before this service.
const (
	contactsCollection        = "Contract"
	templatesCollection       = "Template"
	promptTemplatesCollection = "AIPromptTemplate"
	usersCollection           = "User"
)

type DatabaseClient struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDatabaseClient connects, pings and makes sure every index exists.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("MONGODB_URI is empty")
	}

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(cfg.Mongo.ConnectTimeout).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c := &DatabaseClient{client: client, db: client.Database(cfg.Mongo.Database)}

	if err := EnsureIndexes(ctx, c.db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return c, nil
}

func (c *DatabaseClient) Contacts() *ContactRepository {
	return NewContactRepository(c.db)
}

func (c *DatabaseClient) Templates() *TemplateRepository {
	return NewTemplateRepository(c.db)
}

func (c *DatabaseClient) PromptTemplates() *PromptTemplateRepository {
	return NewPromptTemplateRepository(c.db)
}

func (c *DatabaseClient) Users() *UserRepository {
	return NewUserRepository(c.db)
}

func (c *DatabaseClient) Close(ctx context.Context) error {
	if c.client != nil {
		return c.client.Disconnect(ctx)
	}
	return nil
}
