// Package cli implements the ciqctl command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ciq-assistant/internal/app"
	"ciq-assistant/internal/config"
	"ciq-assistant/internal/document"
	"ciq-assistant/internal/indexer"
	"ciq-assistant/internal/service"
)

// IndexBuilder rebuilds collection indexes.
type IndexBuilder interface {
	BuildAll(ctx context.Context, collections ...document.Collection) ([]*indexer.CollectionStats, error)
}

// Services are the operations the commands drive.
type Services struct {
	Builder IndexBuilder
	Query   service.QueryService
	Schema  service.SchemaService
}

var (
	services *Services
	running  *app.App

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ciqctl",
	Short: "Query and maintain the CIQ assistant",
	Long: `ciqctl builds the collection indexes, asks questions against them and
standardizes CIQ workbooks against the standard CIQ template.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// SetServices overrides the services built from configuration.
func SetServices(s *Services) {
	services = s
}

// Execute runs the root command and releases whatever it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := teardown(); err == nil {
		err = closeErr
	}
	return err
}

func setup(cmd *cobra.Command, args []string) error {
	if services != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	running = a
	services = &Services{
		Builder: a.Builder,
		Query:   a.Query,
		Schema:  a.Schema,
	}
	return nil
}

func teardown() error {
	if running == nil {
		return nil
	}
	err := running.Close()
	running = nil
	services = nil
	return err
}

func requireServices() (*Services, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return services, nil
}
