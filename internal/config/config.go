package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// DataDir holds the corpus CSVs and embedding artifacts.
	DataDir string `envconfig:"DATA_DIR" default:"data"`
	// ConversationsDir holds per-user conversation documents when no
	// database is configured.
	ConversationsDir string `envconfig:"CONVERSATIONS_DIR" default:"conversations"`

	// DatabaseURL enables the Postgres conversation store and vector index.
	// When empty, conversations live on disk and search runs in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	CorpusFileEN    string `envconfig:"CORPUS_FILE_EN" default:"menstrual_data.csv"`
	CorpusFileSW    string `envconfig:"CORPUS_FILE_SW" default:"menstrual_data_sw.csv"`
	EmbeddingFileEN string `envconfig:"EMBEDDING_FILE_EN" default:"embeddings.json"`
	EmbeddingFileSW string `envconfig:"EMBEDDING_FILE_SW" default:"embeddings_sw.json"`

	// InferenceBaseURL points at an OpenAI-compatible server hosting the
	// generation and embedding models.
	InferenceBaseURL string `envconfig:"INFERENCE_BASE_URL" default:"http://localhost:8000/v1"`
	InferenceAPIKey  string `envconfig:"INFERENCE_API_KEY"`

	GenerationModel     string `envconfig:"GENERATION_MODEL" default:"google/flan-t5-base"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"sentence-transformers/all-MiniLM-L6-v2"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`

	TranslationEnabled bool   `envconfig:"TRANSLATION_ENABLED" default:"true"`
	TranslationModelEN string `envconfig:"TRANSLATION_MODEL_EN" default:"Helsinki-NLP/opus-mt-en-swc"`
	TranslationModelSW string `envconfig:"TRANSLATION_MODEL_SW" default:"Helsinki-NLP/opus-mt-swc-en"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"eunoia-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// RetentionInterval is how often the sweeper prunes idle conversations.
	// Zero disables the sweeper.
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`
	// RetentionMaxAge is how long an untouched conversation is kept.
	RetentionMaxAge time.Duration `envconfig:"RETENTION_MAX_AGE" default:"2160h"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("EUNOIA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
