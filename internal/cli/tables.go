package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tabkit/tabq/internal/store"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "tables",
		Short:         "List document tables in the database",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTables(rootOpts, cmd)
		},
	}
}

func runTables(opts *RootOptions, cmd *cobra.Command) error {
	st, _, err := openStore(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()

	tables, err := store.ListTables(context.Background(), st)
	if err != nil {
		return WrapExitError(ExitFailure, "cannot list tables", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.JSON(map[string]any{"tables": tables})
	}
	for _, table := range tables {
		formatter.Line("%s", table)
	}
	return nil
}
