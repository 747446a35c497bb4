package cli

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/tabkit/tabq/internal/query"
	"github.com/tabkit/tabq/internal/sqlgen"
	"github.com/tabkit/tabq/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Select  string
	Where   string
	Order   string
	Range   string
	SQLOnly bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <table>",
		Short: "Run a shaped selection against a table",
		Long: `Run a shaped selection against a table.

Flags take the same values as the HTTP query parameters.

Example:
  tabq query events --db data.db --select 'b[0],c.h' --where 'x=gt.0' --order x.desc
  tabq query events --select 'c.h' --sql`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Select, "select", "", "paths to select, comma-separated")
	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")
	cmd.Flags().StringVar(&opts.Order, "order", "", "order terms, path.asc or path.desc")
	cmd.Flags().StringVar(&opts.Range, "range", "", "row window as offset.limit")
	cmd.Flags().BoolVar(&opts.SQLOnly, "sql", false, "print the generated SQL and arguments without executing")

	return cmd
}

func runQuery(opts *QueryOptions, table string, cmd *cobra.Command) error {
	params := url.Values{}
	for key, val := range map[string]string{
		"select": opts.Select,
		"where":  opts.Where,
		"order":  opts.Order,
		"range":  opts.Range,
	} {
		if val != "" {
			params.Set(key, val)
		}
	}

	q, err := query.ParseParams(table, params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot compile query", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.SQLOnly {
		if opts.Format == "json" {
			return formatter.JSON(map[string]any{"sql": stmt.SQL, "args": stmt.Args})
		}
		formatter.Line("%s", stmt.SQL)
		for _, arg := range stmt.Args {
			formatter.Line("  ? = %v", arg)
		}
		return nil
	}

	st, _, err := openStore(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()

	docs, err := store.Select(context.Background(), st, stmt)
	if err != nil {
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return formatter.JSON(map[string]any{"data": docs})
	}
	for _, doc := range docs {
		text, err := json.Marshal(doc)
		if err != nil {
			return WrapExitError(ExitFailure, "cannot encode row", err)
		}
		formatter.Line("%s", text)
	}
	return nil
}
