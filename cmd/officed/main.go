package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/config"
	"github.com/example/office-planner/internal/logging"
	"github.com/example/office-planner/internal/persistence/sqlite/migration"
)

const serviceName = "officed"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Office desk, employee and reservation service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSetupGroupsCommand(),
		newCreateAdminCommand(),
	)
	return root
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// withApp runs fn against a fully wired app and closes it afterwards.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close resources", zap.Error(cerr))
		}
	}()
	return fn(a)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.groups.EnsureDefaultGroups(cmd.Context(), a.cfg.Policy.KeeperGroup); err != nil {
					return err
				}
				return a.serve(cmd.Context())
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			storage, err := openStorage(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer storage.Close()

			status, err := storage.MigrationStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
}

func printMigrationStatus(w io.Writer, status *migration.MigrationStatus) {
	fmt.Fprintf(w, "current version: %s\n", status.CurrentVersion)
	fmt.Fprintf(w, "applied: %d, pending: %d\n", len(status.AppliedMigrations), status.PendingCount)
	for _, m := range status.AppliedMigrations {
		fmt.Fprintf(w, "  %s applied %s\n", m.Version, m.AppliedAt.UTC().Format("2006-01-02 15:04:05"))
	}
}

func newSetupGroupsCommand() *cobra.Command {
	var extra []string
	cmd := &cobra.Command{
		Use:   "setup-groups",
		Short: "Create the Developers, Testers and keeper groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				if err := a.groups.EnsureDefaultGroups(cmd.Context(), a.cfg.Policy.KeeperGroup); err != nil {
					return err
				}
				if len(extra) > 0 {
					if err := a.groups.EnsureGroups(cmd.Context(), extra...); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "groups are ready")
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&extra, "group", nil, "additional group to create (repeatable)")
	return cmd
}

func newCreateAdminCommand() *cobra.Command {
	var params application.RegisterParams
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if params.Password == "" {
				params.Password = os.Getenv("OFFICE_ADMIN_PASSWORD")
			}
			params.PasswordConfirm = params.Password
			return withApp(cmd.Context(), func(a *app) error {
				user, err := a.users.CreateAdministrator(cmd.Context(), params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "administrator %s created with id %s\n", user.Username, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&params.Username, "username", "", "login name")
	cmd.Flags().StringVar(&params.Email, "email", "", "contact address")
	cmd.Flags().StringVar(&params.Password, "password", "", "password (defaults to OFFICE_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
