package repository

import (
	"context"
	"sync"
	"time"

	"github.com/vhvplatform/go-billing-notifier/internal/domain"
	apperrors "github.com/vhvplatform/go-billing-notifier/internal/shared/errors"
	"github.com/vhvplatform/go-billing-notifier/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const configsCollection = "notification_configs"

// Store is the configuration persistence contract: one blob per
// environment, replaced wholesale. Put must carry the version the caller
// read; stale writes fail with version_conflict so two operators editing
// at once cannot silently overwrite each other.
type Store interface {
	// Get returns the environment's config, or nil when none was written yet.
	Get(ctx context.Context, env domain.Environment) (*domain.NotificationConfig, error)
	// Put replaces the config. expectedVersion is 0 for the lazy first
	// write. On success the stored version becomes expectedVersion+1.
	Put(ctx context.Context, env domain.Environment, cfg *domain.NotificationConfig, expectedVersion int64) error
}

// configDocument is the Mongo shape of one environment blob.
type configDocument struct {
	Environment domain.Environment `bson:"_id"`
	Version     int64              `bson:"version"`
	Templates   []domain.Template  `bson:"templates"`
	Rules       []domain.Rule      `bson:"rules"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// ConfigRepository is the Mongo-backed config store.
type ConfigRepository struct {
	client *mongodb.MongoClient
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(client *mongodb.MongoClient) *ConfigRepository {
	return &ConfigRepository{client: client}
}

// EnsureIndexes creates necessary indexes. The blob is keyed by
// environment, so only the version lookup needs support.
func (r *ConfigRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "version", Value: 1}},
			Options: options.Index().SetName("version_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, configsCollection, indexes)
}

// Get loads an environment's configuration blob.
func (r *ConfigRepository) Get(ctx context.Context, env domain.Environment) (*domain.NotificationConfig, error) {
	var doc configDocument
	err := r.client.Collection(configsCollection).FindOne(ctx, bson.M{"_id": env}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &domain.NotificationConfig{
		Version:   doc.Version,
		Templates: doc.Templates,
		Rules:     doc.Rules,
	}, nil
}

// Put replaces an environment's configuration blob with an optimistic
// version check. The first write (expectedVersion 0) inserts the document;
// a concurrent first write surfaces as a duplicate key, which is the same
// lost-update race and gets the same version_conflict answer.
func (r *ConfigRepository) Put(ctx context.Context, env domain.Environment, cfg *domain.NotificationConfig, expectedVersion int64) error {
	doc := configDocument{
		Environment: env,
		Version:     expectedVersion + 1,
		Templates:   cfg.Templates,
		Rules:       cfg.Rules,
		UpdatedAt:   time.Now().UTC(),
	}

	if expectedVersion == 0 {
		_, err := r.client.Collection(configsCollection).InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError("configuration was created concurrently")
		}
		if err != nil {
			return err
		}
		cfg.Version = doc.Version
		return nil
	}

	filter := bson.M{"_id": env, "version": expectedVersion}
	result, err := r.client.Collection(configsCollection).ReplaceOne(ctx, filter, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperrors.NewConflictError("configuration version is stale")
	}

	cfg.Version = doc.Version
	return nil
}

// MemoryStore is an in-process Store used by tests and local development.
// It enforces the same version semantics as the Mongo repository.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[domain.Environment]*domain.NotificationConfig
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[domain.Environment]*domain.NotificationConfig)}
}

// Get returns a deep-enough copy so callers can mutate freely.
func (s *MemoryStore) Get(_ context.Context, env domain.Environment) (*domain.NotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[env]
	if !ok {
		return nil, nil
	}

	out := &domain.NotificationConfig{
		Version:   cfg.Version,
		Templates: append([]domain.Template(nil), cfg.Templates...),
		Rules:     append([]domain.Rule(nil), cfg.Rules...),
	}
	return out, nil
}

// Put stores the blob when expectedVersion matches the current one.
func (s *MemoryStore) Put(_ context.Context, env domain.Environment, cfg *domain.NotificationConfig, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := int64(0)
	if existing, ok := s.configs[env]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return apperrors.NewConflictError("configuration version is stale")
	}

	stored := &domain.NotificationConfig{
		Version:   expectedVersion + 1,
		Templates: append([]domain.Template(nil), cfg.Templates...),
		Rules:     append([]domain.Rule(nil), cfg.Rules...),
	}
	s.configs[env] = stored
	cfg.Version = stored.Version
	return nil
}
