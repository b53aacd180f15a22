package config

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DB_CONNECTION_STRING" required:"true"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Optional: when set, user routes require a Bearer token signed with it.
	JWTSecret string `envconfig:"JWT_SECRET"`

	AdminKey string `envconfig:"ADMIN_KEY" default:"admin123"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GroqAPIKey   string `envconfig:"GROQ_API_KEY"`

	WhisperModel    string `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	WhisperLanguage string `envconfig:"WHISPER_LANGUAGE" default:"id"`
	GroqModel       string `envconfig:"GROQ_MODEL" default:"llama-3.1-8b-instant"`

	MaxFileSizeMB int    `envconfig:"MAX_FILE_SIZE_MB" default:"50"`
	TempDir       string `envconfig:"TEMP_DIR" default:"/tmp/ai_summarizer"`

	// Secret Manager fallback for AI keys when the env vars are unset.
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MaxFileSizeBytes returns the upload ceiling in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Issues reports missing configuration that degrades the service.
func (c *Config) Issues() []string {
	var issues []string
	if c.OpenAIAPIKey == "" {
		issues = append(issues, "OPENAI_API_KEY is not set")
	}
	if c.GroqAPIKey == "" {
		issues = append(issues, "GROQ_API_KEY is not set")
	}
	return issues
}

// LoadSecretsFromGCP fills in missing AI API keys from Secret Manager.
// It is a no-op when GCP_PROJECT_ID is unset or both keys are present.
func (c *Config) LoadSecretsFromGCP(ctx context.Context, opts ...option.ClientOption) error {
	if c.GCPProjectID == "" || (c.OpenAIAPIKey != "" && c.GroqAPIKey != "") {
		return nil
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	access := func(name string) (string, error) {
		resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProjectID, name)
		result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: resourceName,
		})
		if err != nil {
			return "", fmt.Errorf("failed to access secret %s: %w", name, err)
		}
		return string(result.Payload.Data), nil
	}

	if c.OpenAIAPIKey == "" {
		key, err := access("openai-api-key")
		if err != nil {
			return err
		}
		c.OpenAIAPIKey = key
	}
	if c.GroqAPIKey == "" {
		key, err := access("groq-api-key")
		if err != nil {
			return err
		}
		c.GroqAPIKey = key
	}
	return nil
}
