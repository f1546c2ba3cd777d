package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BlobBackendS3 = "s3"
	BlobBackendFS = "fs"

	MetadataBackendDynamoDB = "dynamodb"
	MetadataBackendSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Auth       AuthConfig        `yaml:"auth"`
	AWS        AWSConfig         `yaml:"aws"`
	Blob       BlobConfig        `yaml:"blob"`
	Metadata   MetadataConfig    `yaml:"metadata"`
	Generation GenerationConfig  `yaml:"generation"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.AWS.Validate(); err != nil {
		return err
	}
	if err := c.Blob.Validate(); err != nil {
		return err
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	return c.Generation.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AWSConfig selects the region for all managed-service clients.
type AWSConfig struct {
	Region string `yaml:"region"`
}

// Validate validates the AWS configuration.
func (c *AWSConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Region, validation.Required),
	)
}

// BlobConfig selects where generated YAML documents are stored.
type BlobConfig struct {
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket"`
	Path    string `yaml:"path"` // fs backend root
}

// Validate validates the blob store configuration.
func (c *BlobConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BlobBackendS3, BlobBackendFS)),
	); err != nil {
		return err
	}
	if c.Backend == BlobBackendS3 && c.Bucket == "" {
		return fmt.Errorf("blob: backend is %q but bucket is empty", BlobBackendS3)
	}
	if c.Backend == BlobBackendFS && c.Path == "" {
		return fmt.Errorf("blob: backend is %q but path is empty", BlobBackendFS)
	}
	return nil
}

// MetadataConfig selects where contract records are stored.
type MetadataConfig struct {
	Backend string `yaml:"backend"`
	Table   string `yaml:"table"`
	Path    string `yaml:"path"` // sqlite backend database file
}

// Validate validates the metadata store configuration.
func (c *MetadataConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(MetadataBackendDynamoDB, MetadataBackendSQLite)),
	); err != nil {
		return err
	}
	if c.Backend == MetadataBackendDynamoDB && c.Table == "" {
		return fmt.Errorf("metadata: backend is %q but table is empty", MetadataBackendDynamoDB)
	}
	if c.Backend == MetadataBackendSQLite && c.Path == "" {
		return fmt.Errorf("metadata: backend is %q but path is empty", MetadataBackendSQLite)
	}
	return nil
}

// GenerationConfig holds the text-generation model parameters.
type GenerationConfig struct {
	ModelID     string  `yaml:"model_id"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ModelID, validation.Required),
		validation.Field(&c.MaxTokens, validation.Required, validation.Min(1)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(1.0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
		Blob: BlobConfig{
			Backend: BlobBackendS3,
			Bucket:  "gencontract-data",
		},
		Metadata: MetadataConfig{
			Backend: MetadataBackendDynamoDB,
			Table:   "ContractMetadata",
		},
		Generation: GenerationConfig{
			ModelID:     "anthropic.claude-3-sonnet-20240229-v1:0",
			MaxTokens:   2000,
			Temperature: 0.3,
		},
	}
}
