package supportctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/support-space-backend/internal/config"
	"github.com/sandeepkv93/support-space-backend/internal/di"
	"github.com/sandeepkv93/support-space-backend/internal/observability"
	"github.com/sandeepkv93/support-space-backend/internal/tools/common"
	"github.com/sandeepkv93/support-space-backend/internal/tools/ui"
)

const adminPasswordEnv = "SUPPORT_SPACE_ADMIN_PASSWORD"

var ErrCommandFailed = errors.New("command failed")

type options struct {
	envFile string
	ci      bool
	timeout time.Duration

	initTools func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*di.AdminTools, func(), error)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{initTools: di.InitializeAdminTools})
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "support-space",
		Short:         "Support Space backend: HTTP server and account maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional KEY=VALUE file applied before the environment")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "deadline for one-shot commands")
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSessionsCommand(opts))
	cmd.AddCommand(newUsersCommand(opts))
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the session janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			logger, lp, err := observability.NewLogger(ctx, cfg, os.Stdout)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			a, cleanup, err := di.InitializeApp(ctx, cfg, logger, lp)
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer cleanup()
			return a.Run(ctx)
		},
	}
}

func newSessionsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Session maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired session rows once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withTools(cmd, "sessions cleanup", func(ctx context.Context, tools *di.AdminTools) ([]string, error) {
				n, err := tools.Sessions.CleanupExpiredSessions(ctx)
				if err != nil {
					return nil, err
				}
				observability.RecordSessionCleanup(ctx, "cli", n)
				return []string{fmt.Sprintf("deleted=%d", n)}, nil
			})
		},
	})
	return cmd
}

func newUsersCommand(opts *options) *cobra.Command {
	var email, password, name string
	create := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an active administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(adminPasswordEnv)
			}
			return opts.withTools(cmd, "users create-admin", func(ctx context.Context, tools *di.AdminTools) ([]string, error) {
				user, err := tools.Auth.CreateUser(ctx, email, password, name, true)
				if err != nil {
					return nil, err
				}
				return []string{fmt.Sprintf("id=%d", user.ID), "email=" + user.Email}, nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "admin email")
	create.Flags().StringVar(&password, "password", "", "admin password (defaults to $"+adminPasswordEnv+")")
	create.Flags().StringVar(&name, "name", "", "admin display name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	cmd := &cobra.Command{Use: "users", Short: "Account maintenance"}
	cmd.AddCommand(create)
	return cmd
}

func (o *options) withTools(cmd *cobra.Command, title string, fn func(context.Context, *di.AdminTools) ([]string, error)) error {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return err
	}
	logger, _, err := observability.NewLogger(cmd.Context(), cfg, io.Discard)
	if err != nil {
		return err
	}

	details, err := o.run(cmd, title, func(ctx context.Context) ([]string, error) {
		tools, cleanup, err := o.initTools(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		return fn(ctx, tools)
	})
	if o.ci {
		common.WriteCIResult(cmd.OutOrStdout(), err == nil, title, details, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCommandFailed, title, err)
	}
	return nil
}

func (o *options) run(cmd *cobra.Command, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	if o.ci {
		return fn(ctx)
	}
	return ui.Run(ctx, title, fn)
}
