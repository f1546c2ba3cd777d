// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/ternlund/datapact/internal/api"
	"github.com/ternlund/datapact/internal/blobstore"
	"github.com/ternlund/datapact/internal/contractservice"
	"github.com/ternlund/datapact/internal/gateway"
	"github.com/ternlund/datapact/internal/genai"
	"github.com/ternlund/datapact/internal/mcpserver"
	"github.com/ternlund/datapact/internal/metastore"
)

// buildService wires stores and generator per the configured backends.
// The returned cleanup closes whatever needs closing.
func buildService(ctx context.Context, app *application) (*contractservice.Service, func(), error) {
	cfg := app.config
	cleanup := func() {}

	needsAWS := cfg.Blob.Backend == BlobBackendS3 ||
		cfg.Metadata.Backend == MetadataBackendDynamoDB ||
		app.generator == nil

	var awsCfg aws.Config
	if needsAWS {
		loaded, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			return nil, cleanup, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = loaded
	}

	var blobs blobstore.Store
	switch cfg.Blob.Backend {
	case BlobBackendS3:
		blobs = blobstore.NewS3(s3.NewFromConfig(awsCfg), cfg.Blob.Bucket, cfg.AWS.Region)
	case BlobBackendFS:
		fsStore, err := blobstore.NewFS(cfg.Blob.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init blob store: %w", err)
		}
		blobs = fsStore
	}

	var meta metastore.Store
	switch cfg.Metadata.Backend {
	case MetadataBackendDynamoDB:
		meta = metastore.NewDynamo(dynamodb.NewFromConfig(awsCfg), cfg.Metadata.Table)
	case MetadataBackendSQLite:
		db, err := metastore.OpenSQLite(cfg.Metadata.Path)
		if err != nil {
			return nil, cleanup, fmt.Errorf("init metadata store: %w", err)
		}
		cleanup = func() { _ = db.Close() }
		meta = db
	}

	gen := app.generator
	if gen == nil {
		gen = genai.NewBedrock(
			bedrockruntime.NewFromConfig(awsCfg),
			cfg.Generation.ModelID,
			cfg.Generation.MaxTokens,
			cfg.Generation.Temperature,
		)
	}

	return contractservice.New(gen, blobs, meta), cleanup, nil
}

func initLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func buildApp(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := initLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("blob_backend", cfg.Blob.Backend),
		slog.String("metadata_backend", cfg.Metadata.Backend),
		slog.String("model_id", cfg.Generation.ModelID),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, cleanup, err := buildService(ctx, app)
	if err != nil {
		return err
	}
	defer cleanup()

	router := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunGateway starts the Lambda proxy dispatcher with the given options.
func RunGateway(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	initLogger(app.config)

	svc, cleanup, err := buildService(ctx, app)
	if err != nil {
		return err
	}
	defer cleanup()

	d := gateway.New(svc)
	lambda.StartWithOptions(d.Handle, lambda.WithContext(ctx))
	return nil
}

// RunMCP starts the MCP stdio server with the given options.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := buildApp(opts)
	if err != nil {
		return err
	}
	initLogger(app.config)

	svc, cleanup, err := buildService(ctx, app)
	if err != nil {
		return err
	}
	defer cleanup()

	return mcpserver.New(svc).ServeStdio()
}
