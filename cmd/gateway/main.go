package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/ternlund/datapact/internal"
	pkgconfig "github.com/ternlund/datapact/pkg/config"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if err := internal.RunGateway(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("gateway run error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "datapact-gateway",
		Usage:  "API Gateway proxy dispatcher for the data contract service",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("gateway error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
