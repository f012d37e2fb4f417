// Package main implements the corpusd server and its one-shot ingestion CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fernlabs/corpusd/internal/answer"
	"github.com/fernlabs/corpusd/internal/chunk"
	"github.com/fernlabs/corpusd/internal/config"
	"github.com/fernlabs/corpusd/internal/embeddings"
	"github.com/fernlabs/corpusd/internal/events"
	"github.com/fernlabs/corpusd/internal/generation"
	"github.com/fernlabs/corpusd/internal/ingest"
	"github.com/fernlabs/corpusd/internal/logging"
	"github.com/fernlabs/corpusd/internal/retrieval"
	"github.com/fernlabs/corpusd/internal/server"
	"github.com/fernlabs/corpusd/internal/vectorstore"
)

var (
	version    = "dev"
	configPath string
)

func main() {
	// Missing .env is fine; real deployments use environment variables.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "corpusd",
	Short: "Document ingestion and grounded question answering",
	Long: `corpusd ingests PDF documents into a vector store and answers
questions grounded in the ingested corpus.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the corpusd HTTP server",
	Long: `Run the corpusd HTTP server.

Examples:
  # Serve with environment configuration
  corpusd serve

  # Serve with a config file
  corpusd serve --config /etc/corpusd/config.yaml`,
	RunE: runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf>",
	Short: "Ingest one local PDF and exit",
	Long: `Ingest one local PDF into the configured vector store and exit.

Examples:
  corpusd ingest report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

// components holds everything the commands wire together.
type components struct {
	logger    *zap.Logger
	gateway   *embeddings.Gateway
	store     vectorstore.Store
	publisher events.Publisher
	pipeline  *ingest.Pipeline
	engine    *retrieval.Engine
	composer  *answer.Composer
}

func (c *components) close() {
	if c.publisher != nil {
		c.publisher.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	if c.gateway != nil {
		_ = c.gateway.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	logger, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	c := &components{logger: logger}

	provider, err := embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
		APIKey:    cfg.OpenAI.APIKey.Value(),
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building embedding provider: %w", err)
	}

	c.gateway, err = embeddings.NewGateway(provider, cfg.Embedding.Dimension)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building embedding gateway: %w", err)
	}

	c.store, err = vectorstore.NewStore(ctx, vectorstore.Config{
		Backend: cfg.Store.Provider,
		PGVector: vectorstore.PGVectorConfig{
			DSN:       cfg.Store.DatabaseURL.Value(),
			Table:     cfg.Store.Table,
			Dimension: cfg.Embedding.Dimension,
		},
		Chromem: vectorstore.ChromemConfig{
			Path:       cfg.Store.ChromemPath,
			Collection: cfg.Store.Table,
			Dimension:  cfg.Embedding.Dimension,
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:       cfg.Store.QdrantHost,
			Port:       cfg.Store.QdrantPort,
			Collection: cfg.Store.Table,
			Dimension:  cfg.Embedding.Dimension,
		},
	}, logger.Named("vectorstore"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building vector store: %w", err)
	}

	publisher, err := events.NewNATSPublisher(events.Config{
		URL: cfg.Events.NATSURL,
	}, logger.Named("events"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building events publisher: %w", err)
	}
	if publisher != nil {
		c.publisher = publisher
	}

	chunker, err := chunk.NewChunker(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	c.pipeline, err = ingest.NewPipeline(chunker, c.gateway, c.store, c.publisher, logger.Named("ingest"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	c.engine, err = retrieval.NewEngine(c.gateway, c.store, cfg.Retrieval.K, logger.Named("retrieval"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building retrieval engine: %w", err)
	}

	generator, err := generation.NewOpenAIGenerator(generation.OpenAIConfig{
		APIKey: cfg.OpenAI.APIKey.Value(),
		Model:  cfg.Generation.Model,
	})
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building generator: %w", err)
	}

	c.composer, err = answer.NewComposer(generator, logger.Named("answer"))
	if err != nil {
		c.close()
		return nil, fmt.Errorf("building composer: %w", err)
	}

	return c, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	srv, err := server.NewServer(c.pipeline, c.engine, c.composer, c.logger.Named("http"), server.Config{
		Port:       cfg.Server.Port,
		CORSOrigin: cfg.Server.CORSOrigin,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	result, err := c.pipeline.Ingest(ctx, args[0], data)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case ingest.OutcomeAlreadyProcessed:
		fmt.Printf("%s was already ingested (fingerprint %s)\n", result.Source, result.Fingerprint)
	case ingest.OutcomeNoContent:
		fmt.Printf("%s contains no extractable text\n", result.Source)
	default:
		fmt.Printf("%s ingested: %d chunks (fingerprint %s)\n",
			result.Source, result.Chunks, result.Fingerprint)
	}
	return nil
}
