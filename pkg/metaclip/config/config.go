// Package config assembles server configuration and builds the service
// components from it. Defaults are applied first, then functional options
// (including environment overrides) on top.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metaclip/metaclip/pkg/metaclip"
	memoryrepo "github.com/metaclip/metaclip/pkg/metaclip/repo/memory"
	"github.com/metaclip/metaclip/pkg/metaclip/repo/postgres"
	"github.com/metaclip/metaclip/pkg/metaclip/repo/sqlite"
	fsstorage "github.com/metaclip/metaclip/pkg/metaclip/storage/fs"
	memorystorage "github.com/metaclip/metaclip/pkg/metaclip/storage/memory"
	s3storage "github.com/metaclip/metaclip/pkg/metaclip/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:          "8080",
		Environment:   "development",
		DatabaseType:  "sqlite",
		DataDir:       "data",
		StorageType:   "fs",
		HubBufferSize: 32,
	}
}

// ServerConfig represents server configuration for the metaclip service.
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseType string // "memory", "sqlite", "postgres"
	DatabaseURL  string // postgres connection string
	DataDir      string // base directory for the sqlite file and fs storage

	// Storage configuration
	StorageType string // "memory", "fs", "s3"
	S3          S3Config

	// AuthTokens are the opaque bearer tokens accepted by the raw-query
	// gateway. An empty list disables gateway auth (development only).
	AuthTokens []string

	// HubBufferSize is the per-subscriber event delivery buffer capacity.
	HubBufferSize int
}

// S3Config holds settings for the S3 storage backend.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
	KeyPrefix       string
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("database_type must be 'memory', 'sqlite' or 'postgres', got %q", c.DatabaseType)
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	if c.DatabaseType == "sqlite" && c.DataDir == "" {
		return errors.New("data_dir is required when using sqlite")
	}

	switch c.StorageType {
	case "memory", "fs", "s3":
	default:
		return fmt.Errorf("storage_type must be 'memory', 'fs' or 's3', got %q", c.StorageType)
	}
	if c.StorageType == "fs" && c.DataDir == "" {
		return errors.New("data_dir is required when using fs storage")
	}
	if c.StorageType == "s3" && c.S3.Bucket == "" {
		return errors.New("s3 bucket is required when using s3 storage")
	}

	if c.HubBufferSize <= 0 {
		return errors.New("hub_buffer_size must be positive")
	}

	return nil
}

// BuildRepository creates the metadata repository. The returned executor is
// nil for the memory repository, which cannot run raw statements. The
// returned closer releases the underlying connections; it may be nil.
func (c *ServerConfig) BuildRepository(ctx context.Context) (metaclip.Repository, metaclip.StatementExecutor, io.Closer, error) {
	switch c.DatabaseType {
	case "memory":
		return memoryrepo.New(), nil, nil, nil

	case "sqlite":
		repo, err := sqlite.Open(filepath.Join(c.DataDir, "metaclip.db"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open sqlite repository: %w", err)
		}
		return repo, repo, repo, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		repo := postgres.NewWithPool(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return repo, repo, closerFunc(func() error { pool.Close(); return nil }), nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown database type %q", c.DatabaseType)
	}
}

// BuildBlobStore creates the blob storage backend.
func (c *ServerConfig) BuildBlobStore() (metaclip.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir: filepath.Join(c.DataDir, "files"),
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			KeyPrefix:       c.S3.KeyPrefix,
		})

	default:
		return nil, fmt.Errorf("unknown storage type %q", c.StorageType)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
