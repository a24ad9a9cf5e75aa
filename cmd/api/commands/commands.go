package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/taskmaster/wbs/internal/adapters/repository"
	"github.com/taskmaster/wbs/internal/application/services"
	"github.com/taskmaster/wbs/internal/infrastructure/config"
	"github.com/taskmaster/wbs/internal/infrastructure/database"
	"github.com/taskmaster/wbs/internal/infrastructure/logger"
	"github.com/taskmaster/wbs/internal/infrastructure/server"
	"github.com/taskmaster/wbs/internal/ports"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before serving")

	return cmd
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(_ *config.Config, db *database.DB) error {
				if err := db.MigrateUp(); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), db)
			})
		},
	})

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(_ *config.Config, db *database.DB) error {
				if err := db.MigrateDown(steps); err != nil {
					return err
				}
				return printVersion(cmd.OutOrStdout(), db)
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back (0 rolls back all)")
	migrateCmd.AddCommand(downCmd)

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(_ *config.Config, db *database.DB) error {
				return printVersion(cmd.OutOrStdout(), db)
			})
		},
	})

	return migrateCmd
}

// NewProjectCommand creates the project management command
func NewProjectCommand() *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Project management commands",
	}

	var owner, name, description, color string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := uuid.Parse(owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}

			req := ports.CreateProjectRequest{Name: name}
			if description != "" {
				req.Description = &description
			}
			if color != "" {
				req.Color = &color
			}
			req.Normalize()
			if req.Name == "" {
				return errors.New("--name is required")
			}

			return withDatabase(func(cfg *config.Config, db *database.DB) error {
				appLogger, err := logger.New(cfg.Logger)
				if err != nil {
					return err
				}
				defer appLogger.Close()

				svc := services.NewProjectService(db, repository.NewProjectRepository(db.Dialect), appLogger)
				project, err := svc.CreateProject(cmd.Context(), ownerID, req)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Project created successfully:\n")
				fmt.Fprintf(out, "  ID: %d\n", project.ID)
				fmt.Fprintf(out, "  Name: %s\n", project.Name)
				fmt.Fprintf(out, "  Owner: %s\n", project.OwnerID)
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&owner, "owner", "", "owner user id (required)")
	createCmd.Flags().StringVar(&name, "name", "", "project name (required)")
	createCmd.Flags().StringVar(&description, "description", "", "project description")
	createCmd.Flags().StringVar(&color, "color", "", "hex color, defaults to "+services.DefaultProjectColor)
	_ = createCmd.MarkFlagRequired("owner")
	_ = createCmd.MarkFlagRequired("name")

	projectCmd.AddCommand(createCmd)
	return projectCmd
}

// NewTokenCommand creates the token command used to mint development bearer tokens
func NewTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token commands",
	}

	var user string
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			token, expiresAt, err := services.NewAuthService(cfg.JWT, logger.NewNop()).IssueToken(userID)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
	issueCmd.Flags().StringVar(&user, "user", "", "user id the token identifies (required)")
	_ = issueCmd.MarkFlagRequired("user")

	tokenCmd.AddCommand(issueCmd)
	return tokenCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wbs %s\n", Version)
		},
	}
}

func runServer(ctx context.Context, migrateFirst bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if migrateFirst {
		if err := db.MigrateUp(); err != nil {
			return err
		}
	}

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLogger.Infow("Starting WBS API server",
		"address", cfg.Server.GetAddress(),
		"environment", cfg.App.Environment,
		"database", cfg.Database.Driver,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.GetAddress())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// withDatabase loads configuration, opens the database and hands both to fn.
func withDatabase(fn func(cfg *config.Config, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(cfg, db)
}

func printVersion(out io.Writer, db *database.DB) error {
	version, dirty, err := db.MigrationVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Current migration version: %d\n", version)
	fmt.Fprintf(out, "Dirty: %t\n", dirty)
	return nil
}
