package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/typedcsv/internal/config"
	"github.com/JonMunkholm/typedcsv/internal/logging"
	"github.com/JonMunkholm/typedcsv/internal/schema"
	"github.com/JonMunkholm/typedcsv/internal/source"
)

// errInvalidRows makes check exit non-zero once the report has been printed.
var errInvalidRows = errors.New("input has invalid rows")

type rootOptions struct {
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "typedcsv",
		Short:         "Check CSV files against typed schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newSchemasCmd(), newCheckCmd(opts))
	return root
}

// =============================================================================
// SCHEMAS
// =============================================================================

func newSchemasCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List registered schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := schema.All()
			if asJSON {
				infos := make([]schema.Info, len(defs))
				for i, def := range defs {
					infos[i] = def.Info
				}
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tGROUP\tLABEL\tTABLE\tCOLUMNS")
			for _, def := range defs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					def.Info.Key, def.Info.Group, def.Info.Label, def.Info.Table, len(def.Info.Columns))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// =============================================================================
// CHECK
// =============================================================================

type checkOptions struct {
	csv      config.CSVConfig
	maxRows  int
	all      bool
	asJSON   bool
	settings []string // flags the user set explicitly
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check <schema> <file|url|->",
		Short: "Check a CSV file against a schema",
		Long: `Reads a CSV file, URL or stdin ("-") as the given schema and reports
every row that could not be bound. Gzip and zstd input is decompressed.
Exits 1 when any row is invalid or excluded.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Flags().Visit(func(f *pflag.Flag) {
				opts.settings = append(opts.settings, f.Name)
			})
			return runCheck(cmd, root, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csv.Separator, "separator", "", "field separator")
	f.StringVar(&opts.csv.Quote, "quote", "", "quote character")
	f.StringVar(&opts.csv.Escape, "escape", "", "escape character inside quotes (default: the quote)")
	f.StringVar(&opts.csv.ListSeparator, "list-separator", "", "separator for list fields")
	f.StringVar(&opts.csv.Charset, "charset", "", "input character set, e.g. latin1")
	f.BoolVar(&opts.csv.Trim, "trim", false, "trim whitespace around fields")
	f.BoolVar(&opts.csv.SkipEmptyLines, "skip-empty-lines", false, "skip blank lines")
	f.BoolVar(&opts.csv.EmptyAsNull, "empty-as-null", false, "treat empty fields as null")
	f.BoolVar(&opts.csv.StrictColumns, "strict-columns", false, "reject rows whose width differs from the header")
	f.IntVar(&opts.maxRows, "max-rows", 50, "rows to list in the report (0 for all)")
	f.BoolVar(&opts.all, "all", false, "list valid rows too")
	f.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions, key, input string) error {
	def, err := schema.Lookup(key)
	if err != nil {
		return err
	}

	base, profile, err := config.Load()
	if err != nil {
		return err
	}
	csvCfg := opts.apply(profile.For(def.Info.Key))
	if err := csvCfg.Validate(); err != nil {
		return err
	}

	src, err := openInput(cmd, input, csvCfg.Charset)
	if err != nil {
		return err
	}
	defer src.Close()

	logger := logging.New(cmd.ErrOrStderr(), root.logLevel, base.Logging.Format).With("schema", def.Info.Key)
	rep, err := def.Check(cmd.Context(), src, csvCfg, opts.maxRows, opts.all, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		err = writeJSON(out, rep)
	} else {
		err = printReport(out, rep)
	}
	if err != nil {
		return err
	}
	if !rep.OK() {
		return errInvalidRows
	}
	return nil
}

// apply overrides cfg with the flags that were set on the command line.
func (o *checkOptions) apply(cfg config.CSVConfig) config.CSVConfig {
	for _, name := range o.settings {
		switch name {
		case "separator":
			cfg.Separator = o.csv.Separator
		case "quote":
			cfg.Quote = o.csv.Quote
		case "escape":
			cfg.Escape = o.csv.Escape
		case "list-separator":
			cfg.ListSeparator = o.csv.ListSeparator
		case "charset":
			cfg.Charset = o.csv.Charset
		case "trim":
			cfg.Trim = o.csv.Trim
		case "skip-empty-lines":
			cfg.SkipEmptyLines = o.csv.SkipEmptyLines
		case "empty-as-null":
			cfg.EmptyAsNull = o.csv.EmptyAsNull
		case "strict-columns":
			cfg.StrictColumns = o.csv.StrictColumns
		}
	}
	return cfg
}

func openInput(cmd *cobra.Command, input, charset string) (*source.Source, error) {
	opts := source.Options{Charset: charset}
	switch {
	case input == "-":
		return source.New(cmd.InOrStdin(), 0, opts)
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		return source.OpenURL(cmd.Context(), nil, input, opts)
	default:
		return source.Open(input, opts)
	}
}

func printReport(w io.Writer, rep *schema.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d rows, %d valid, %d invalid, %d excluded\n",
		rep.Schema, rep.Total, rep.Valid, rep.Invalid, rep.Excluded)

	for _, row := range rep.Rows {
		if len(row.Errors) == 0 {
			fmt.Fprintf(&b, "  line %d: ok\n", row.Line)
			continue
		}
		for _, e := range row.Errors {
			fmt.Fprintf(&b, "  line %d: %s\n", row.Line, e.Error())
		}
	}
	for _, ex := range rep.Exclusions {
		fmt.Fprintf(&b, "  line %d: excluded: %s\n", ex.Line, ex.Error)
	}
	if rep.Truncated {
		b.WriteString("  (report truncated, use --max-rows 0 for everything)\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
