package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors the environment variables the server understands.
type envConfig struct {
	Port        string `env:"PORT"`
	Environment string `env:"ENVIRONMENT"`

	DatabaseType string `env:"DATABASE_TYPE"`
	DatabaseURL  string `env:"DATABASE_URL"`
	DataDir      string `env:"DATA_DIR"`

	StorageType string `env:"STORAGE_TYPE"`

	S3Region          string `env:"S3_REGION"`
	S3Bucket          string `env:"S3_BUCKET"`
	S3AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `env:"S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE"`
	S3KeyPrefix       string `env:"S3_KEY_PREFIX"`

	AuthTokens    []string `env:"AUTH_TOKENS" env-separator:","`
	HubBufferSize int      `env:"HUB_BUFFER_SIZE"`
}

// WithEnv applies environment variable overrides on top of the current
// configuration. Unset variables leave the existing values untouched.
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if env.Port != "" {
			c.Port = env.Port
		}
		if env.Environment != "" {
			c.Environment = env.Environment
		}
		if env.DatabaseType != "" {
			c.DatabaseType = env.DatabaseType
		}
		if env.DatabaseURL != "" {
			c.DatabaseURL = env.DatabaseURL
			if env.DatabaseType == "" {
				c.DatabaseType = "postgres"
			}
		}
		if env.DataDir != "" {
			c.DataDir = env.DataDir
		}
		if env.StorageType != "" {
			c.StorageType = env.StorageType
		}

		if env.S3Region != "" {
			c.S3.Region = env.S3Region
		}
		if env.S3Bucket != "" {
			c.S3.Bucket = env.S3Bucket
			if env.StorageType == "" {
				c.StorageType = "s3"
			}
		}
		if env.S3AccessKeyID != "" {
			c.S3.AccessKeyID = env.S3AccessKeyID
		}
		if env.S3SecretAccessKey != "" {
			c.S3.SecretAccessKey = env.S3SecretAccessKey
		}
		if env.S3Endpoint != "" {
			c.S3.Endpoint = env.S3Endpoint
		}
		if env.S3UsePathStyle {
			c.S3.UsePathStyle = true
		}
		if env.S3KeyPrefix != "" {
			c.S3.KeyPrefix = env.S3KeyPrefix
		}

		if len(env.AuthTokens) > 0 {
			c.AuthTokens = env.AuthTokens
		}
		if env.HubBufferSize > 0 {
			c.HubBufferSize = env.HubBufferSize
		}

		return nil
	}
}
