package cli

import (
	"github.com/spf13/cobra"

	"github.com/tabkit/tabq/internal/serv"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve document tables over HTTP",
		Long: `Serve document tables over HTTP.

Example:
  tabq serve --config tabq.yaml
  tabq serve --db data.db --listen 127.0.0.1:9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions) error {
	st, conf, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		conf.Listen = opts.Listen
	}

	log := serv.NewLogger(conf.LogJSON)
	defer log.Sync() //nolint:errcheck

	return serv.NewService(conf, log, st).Run()
}
