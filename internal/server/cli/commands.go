package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/qrbind/internal/server/auth"
)

func newServeCommand(args []string, d deps) *cobra.Command {
	return &cobra.Command{
		Use:                "serve",
		Short:              "Run the HTTP resolver and the gRPC health service",
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(args, d, func(app Runner) error {
				return app.Run(cmd.Context())
			})
		},
	}
}

func newMigrateCommand(args []string, d deps) *cobra.Command {
	return &cobra.Command{
		Use:                "migrate",
		Short:              "Apply pending database migrations and exit",
		Args:               cobra.NoArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(args, d, func(app Runner) error {
				if err := app.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func newResolveCommand(args []string, d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <token>",
		Short: "Resolve one replica token and print its destination",
		Long: `Resolve runs the same code path as GET /r/<token>. An unbound replica is
bound by this command exactly as a scan would bind it.`,
		Args:               cobra.ExactArgs(1),
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, pos []string) error {
			return withApp(args, d, func(app Runner) error {
				res, err := app.Resolve(cmd.Context(), pos[0])
				if err != nil {
					return err
				}
				if res.FirstBind {
					fmt.Fprintf(cmd.ErrOrStderr(), "bound replica %s to original %s\n", res.ReplicaID, res.OriginalID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Destination)
				return nil
			})
		},
	}
}

func newTokenCommand(args []string, d deps) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:                "token",
		Short:              "Mint a bearer token for the admin endpoints",
		Args:               cobra.NoArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if subject == "" {
				return fmt.Errorf("--subject is required")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive, got %s", ttl)
			}

			cfg, err := d.loadConfig(args)
			if err != nil {
				return err
			}
			tok, err := auth.GenerateToken(subject, []byte(cfg.SecretKey), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "who the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
