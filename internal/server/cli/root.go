// Package cli is the qrbind command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/qrbind/internal/server"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/services"
)

// Runner is the part of server.App the commands drive.
type Runner interface {
	Run(ctx context.Context) error
	Migrate(ctx context.Context) error
	Resolve(ctx context.Context, token string) (*services.Resolution, error)
	Close() error
}

type deps struct {
	loadConfig func(args []string) (*config.Config, error)
	newApp     func(c *config.Config) (Runner, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.LoadConfig,
		newApp: func(c *config.Config) (Runner, error) {
			return server.NewApp(c)
		},
	}
}

// NewRootCommand builds the qrbind command tree for args (usually
// os.Args[1:]). Server settings are read from args by the config package;
// cobra only parses the flags of its own subcommands.
func NewRootCommand(args []string) *cobra.Command {
	return newRootCommand(args, defaultDeps())
}

func newRootCommand(args []string, d deps) *cobra.Command {
	serve := newServeCommand(args, d)

	cmd := &cobra.Command{
		Use:   "qrbind",
		Short: "Resolve replica QR tokens to their original destinations",
		Long: `qrbind serves short links printed on replica QR codes. The first scan of a
replica binds it to an unused original QR of the same brand and type; every
later scan goes to the same destination.

Server settings come from defaults, .env, QRBIND_* variables, the file
given with -c and the flags -a -g -d -s -m -t -b -f -l.`,
		SilenceUsage:       true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		Args:               cobra.ArbitraryArgs,
		RunE:               serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCommand(args, d))
	cmd.AddCommand(newResolveCommand(args, d))
	cmd.AddCommand(newTokenCommand(args, d))

	cmd.SetArgs(args)
	return cmd
}

// withApp loads the configuration, builds the app and closes it after fn.
func withApp(args []string, d deps, fn func(Runner) error) error {
	cfg, err := d.loadConfig(args)
	if err != nil {
		return err
	}
	app, err := d.newApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	return fn(app)
}
