// Package main is the HTTP entry point of the hospital recommender.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emergency-assist/hospital-recommender/internal/api"
	"github.com/emergency-assist/hospital-recommender/internal/catalog"
	"github.com/emergency-assist/hospital-recommender/internal/config"
	"github.com/emergency-assist/hospital-recommender/internal/database"
	"github.com/emergency-assist/hospital-recommender/internal/domain"
	"github.com/emergency-assist/hospital-recommender/internal/repository"
	"github.com/emergency-assist/hospital-recommender/internal/service"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "server",
		Short:        "Hospital recommendation service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml, /etc/hospital-recommender/config.yaml)")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), seedCmd(), classifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads and validates configuration and builds the logger.
func loadConfig() (*domain.Config, *logrus.Logger, error) {
	var opts []config.ManagerOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}

	manager, err := config.NewManager(opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cfg := manager.GetConfig()
	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			opts := []api.Option{api.WithCatalogStatus(app.catalog)}
			if app.alerts != nil {
				opts = append(opts, api.WithAlertService(app.alerts))
			}
			server := api.NewServer(cfg, app.recommender, logger, opts...)

			logger.WithFields(logrus.Fields{
				"catalog":     cfg.Catalog.Source,
				"audit":       cfg.Audit.Enabled,
				"environment": cfg.Environment,
			}).Info("Starting hospital recommendation service")

			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	run := func(action func(*database.MigrationRunner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			runner, err := database.NewMigrationRunner(database.URL(cfg.Database), cfg.Database.MigrationsPath, logger)
			if err != nil {
				return err
			}
			defer runner.Close()
			return action(runner)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE:  run((*database.MigrationRunner).Up),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE:  run((*database.MigrationRunner).Down),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: run(func(r *database.MigrationRunner) error {
				version, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}

func seedCmd() *cobra.Command {
	var file, target string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the hospital catalog into Postgres or MongoDB",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			providers, err := seedProviders(file)
			if err != nil {
				return err
			}

			if target == "" {
				target = cfg.Catalog.Source
			}
			ctx := cmd.Context()

			switch strings.ToLower(target) {
			case "mongo":
				client, err := repository.NewMongoClient(ctx, cfg.Mongo)
				if err != nil {
					return err
				}
				defer client.Disconnect(context.Background())
				err = repository.NewMongoHospitalRepository(client, cfg.Mongo, logger).UpsertAll(ctx, providers)
				if err != nil {
					return err
				}
			case "postgres", "static":
				db, err := database.NewConnection(ctx, cfg.Database, logger)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := repository.NewHospitalRepository(db.Pool, logger).UpsertAll(ctx, providers); err != nil {
					return err
				}
			default:
				return fmt.Errorf("cannot seed catalog source %q", target)
			}

			logger.WithFields(logrus.Fields{
				"target":    target,
				"hospitals": len(providers),
			}).Info("Catalog seeded")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON catalog to load (default: bundled seed)")
	cmd.Flags().StringVar(&target, "target", "", "postgres or mongo (default: catalog.source)")
	return cmd
}

func seedProviders(file string) ([]domain.ProviderRecord, error) {
	if file == "" {
		return catalog.SeedProviders()
	}
	return catalog.LoadSeedFile(file)
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <symptoms...>",
		Short: "Classify a symptom description and print the analysis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			table, err := loadSymptomTable(cfg.Classifier.TablePath)
			if err != nil {
				return err
			}

			analysis, err := service.NewSymptomClassifier(table, logger).Classify(strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		},
	}
}
