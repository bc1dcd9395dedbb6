package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/eunoia-health/eunoia/internal/api/handlers"
	"github.com/eunoia-health/eunoia/internal/config"
	"github.com/eunoia-health/eunoia/internal/corpus"
	"github.com/eunoia-health/eunoia/internal/database"
	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/index"
	"github.com/eunoia-health/eunoia/internal/inference"
	"github.com/eunoia-health/eunoia/internal/jobs"
	"github.com/eunoia-health/eunoia/internal/policy"
	"github.com/eunoia-health/eunoia/internal/repository"
	"github.com/eunoia-health/eunoia/internal/server"
	"github.com/eunoia-health/eunoia/internal/service"
	"github.com/eunoia-health/eunoia/internal/storage"
	"github.com/eunoia-health/eunoia/internal/telemetry"
	"github.com/eunoia-health/eunoia/internal/translate"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the eunoia chat API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is set
	if cfg.SentryDSN != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	if cfg.HasS3() {
		if err := syncArtifacts(ctx, cfg); err != nil {
			return fmt.Errorf("failed to sync artifacts from S3: %w", err)
		}
	}

	pol, err := policy.Load()
	if err != nil {
		return fmt.Errorf("failed to load policy tables: %w", err)
	}

	corpusEN, err := corpus.LoadCSV(filepath.Join(cfg.DataDir, cfg.CorpusFileEN))
	if err != nil {
		return fmt.Errorf("failed to load English corpus: %w", err)
	}
	log.Printf("loaded English corpus: %d entries", len(corpusEN))

	corpusSW, err := corpus.LoadCSV(filepath.Join(cfg.DataDir, cfg.CorpusFileSW))
	if err != nil {
		log.Printf("Swahili corpus unavailable, falling back to query translation: %v", err)
		corpusSW = nil
	} else {
		log.Printf("loaded Swahili corpus: %d entries", len(corpusSW))
	}

	inferenceCfg := inference.Config{
		BaseURL:             cfg.InferenceBaseURL,
		APIKey:              cfg.InferenceAPIKey,
		GenerationModel:     cfg.GenerationModel,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		TranslationModelEN:  cfg.TranslationModelEN,
		TranslationModelSW:  cfg.TranslationModelSW,
	}
	embedder := inference.NewEmbeddingClient(inferenceCfg)
	generationClient := inference.NewGenerationClient(inferenceCfg)

	artifactEN, err := ensureEmbeddings(ctx, embedder, filepath.Join(cfg.DataDir, cfg.EmbeddingFileEN), corpusEN, cfg.EmbeddingDimensions)
	if err != nil {
		return fmt.Errorf("failed to prepare English embeddings: %w", err)
	}

	var artifactSW *corpus.EmbeddingArtifact
	if len(corpusSW) > 0 {
		artifactSW, err = ensureEmbeddings(ctx, embedder, filepath.Join(cfg.DataDir, cfg.EmbeddingFileSW), corpusSW, cfg.EmbeddingDimensions)
		if err != nil {
			log.Printf("Swahili embeddings unavailable, dropping Swahili corpus: %v", err)
			artifactSW, corpusSW = nil, nil
		}
	}

	var pool *pgxpool.Pool
	if cfg.HasDatabase() {
		pool, err = database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}
	}

	var indexEN, indexSW index.Index
	if pool != nil {
		embeddingRepo := repository.NewCorpusEmbeddingRepository(pool)
		indexEN, err = seedIndex(ctx, embeddingRepo, domain.LanguageEnglish, artifactEN)
		if err != nil {
			return fmt.Errorf("failed to seed English index: %w", err)
		}
		if artifactSW != nil {
			indexSW, err = seedIndex(ctx, embeddingRepo, domain.LanguageSwahili, artifactSW)
			if err != nil {
				return fmt.Errorf("failed to seed Swahili index: %w", err)
			}
		}
	} else {
		indexEN, err = index.NewFlatIndex(cfg.EmbeddingDimensions, artifactEN.Rows)
		if err != nil {
			return fmt.Errorf("failed to build English index: %w", err)
		}
		if artifactSW != nil {
			indexSW, err = index.NewFlatIndex(cfg.EmbeddingDimensions, artifactSW.Rows)
			if err != nil {
				return fmt.Errorf("failed to build Swahili index: %w", err)
			}
		}
	}

	var translator *translate.Translator
	if cfg.TranslationEnabled {
		translator = translate.NewTranslator(inference.NewTranslationClient(inferenceCfg), pol.Translation)
	} else {
		translator = translate.NewTranslator(nil, pol.Translation)
		log.Println("translation disabled, Swahili turns degrade to direct mappings")
	}

	var store service.ConversationStore
	var retentionStore jobs.RetentionStore
	if pool != nil {
		pgStore := repository.NewConversationPGStore(pool)
		store, retentionStore = pgStore, pgStore
	} else {
		fileStore, err := repository.NewConversationFileStore(cfg.ConversationsDir)
		if err != nil {
			return fmt.Errorf("failed to open conversation store: %w", err)
		}
		store, retentionStore = fileStore, fileStore
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	retriever := service.NewRetriever(embedder, indexEN, corpusEN, indexSW, corpusSW, translator, pol.Retrieval)
	generator := service.NewGenerator(generationClient)
	validator := service.NewValidator(pol, rng)
	fallback := service.NewFallbackComposer(pol.Fallback, translator, rng)
	detector := service.NewLanguageDetector()

	chatSvc := service.NewChatService(detector, retriever, generator, validator, fallback, translator, store, pol)
	chatHandler := handlers.NewChatHandler(chatSvc, store)

	var retentionWorker *jobs.Worker
	if cfg.RetentionInterval > 0 {
		sweeper := jobs.NewRetentionSweeper(retentionStore, cfg.RetentionMaxAge)
		retentionWorker = jobs.NewWorker(sweeper, cfg.RetentionInterval)
		go retentionWorker.Start(ctx)
		log.Println("retention sweeper started")
	}

	router := server.NewRouter(server.RouterConfig{ChatHandler: chatHandler})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if retentionWorker != nil {
		retentionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// syncArtifacts downloads missing corpus and embedding files from the
// artifact bucket before the index is built.
func syncArtifacts(ctx context.Context, cfg *config.Config) error {
	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	files := []string{cfg.CorpusFileEN, cfg.CorpusFileSW, cfg.EmbeddingFileEN, cfg.EmbeddingFileSW}
	for _, name := range files {
		destPath := filepath.Join(cfg.DataDir, name)
		if _, err := os.Stat(destPath); err == nil {
			continue
		}

		exists, err := s3Client.ObjectExists(ctx, name)
		if err != nil {
			return err
		}
		if !exists {
			log.Printf("artifact %s not in bucket, skipping", name)
			continue
		}
		if err := s3Client.DownloadFile(ctx, name, destPath); err != nil {
			return err
		}
		log.Printf("downloaded artifact %s", name)
	}
	return nil
}

// ensureEmbeddings loads the embedding artifact for a corpus, rebuilding it
// through the inference server when it is missing or out of step with the
// corpus row count. Answers are what similarity search runs against, so the
// answers are embedded; empty answers become zero rows to keep row i of the
// matrix aligned with row i of the corpus.
func ensureEmbeddings(ctx context.Context, embedder *inference.EmbeddingClient, path string, entries []domain.CorpusEntry, dimensions int) (*corpus.EmbeddingArtifact, error) {
	artifact, err := corpus.LoadEmbeddings(path)
	if err == nil {
		if validateErr := artifact.Validate(); validateErr == nil && len(artifact.Rows) == len(entries) {
			return artifact, nil
		}
		log.Printf("embedding artifact %s does not match corpus, rebuilding", path)
	}

	rows := make([][]float32, 0, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.Answer) == "" {
			rows = append(rows, make([]float32, dimensions))
			continue
		}
		vector, err := embedder.Embed(ctx, entry.Answer)
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus row %d: %w", i, err)
		}
		rows = append(rows, vector)
	}

	artifact = &corpus.EmbeddingArtifact{
		Dimensions: dimensions,
		Rows:       rows,
	}
	if err := corpus.SaveEmbeddings(path, artifact); err != nil {
		return nil, err
	}
	log.Printf("built embedding artifact %s: %d rows", path, len(rows))
	return artifact, nil
}

// seedIndex reconciles the corpus_embeddings table with the artifact and
// returns a pgvector-backed index for the language.
func seedIndex(ctx context.Context, repo *repository.CorpusEmbeddingRepository, language string, artifact *corpus.EmbeddingArtifact) (index.Index, error) {
	count, err := repo.Count(ctx, language)
	if err != nil {
		return nil, err
	}
	if count != len(artifact.Rows) {
		if err := repo.ReplaceAll(ctx, language, artifact.Rows); err != nil {
			return nil, err
		}
		log.Printf("seeded %d %s embeddings", len(artifact.Rows), language)
	}
	return index.NewPGVectorIndex(repo, language, len(artifact.Rows)), nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
