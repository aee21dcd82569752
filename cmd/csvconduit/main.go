// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"fmt"
	"log"
	"os"

	csvconduit "github.com/MatrixMike/csv-conduit"
	store "github.com/MatrixMike/csv-conduit/stores/sqlite"
	"github.com/gobeaver/beaver-kit/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// envConfig holds defaults loaded from the environment. Command flags
// override these.
type envConfig struct {
	Separator string `env:"CSVCONDUIT_SEPARATOR"`
	Quote     string `env:"CSVCONDUIT_QUOTE"`
	Database  string `env:"CSVCONDUIT_DB"`
}

func loadEnvConfig() envConfig {
	cfg := envConfig{}
	if err := config.Load(&cfg); err != nil {
		log.Printf("config: %v", err)
	}
	if cfg.Separator == "" {
		cfg.Separator = ","
	}
	if cfg.Quote == "" {
		cfg.Quote = `"`
	}
	if cfg.Database == "" {
		cfg.Database = "csvconduit.db"
	}
	return cfg
}

func main() {
	env := loadEnvConfig()

	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", true, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "csvconduit",
		Short: "streaming CSV command line utility",
		Long:  `Transform CSV files row by row and import them into SQLite`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags || logFlags == 0 {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("csvconduit: version %q\n", csvconduit.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdConvert(env))
	cmdRoot.AddCommand(cmdImport(env))
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

func cmdConvert(env envConfig) *cobra.Command {
	separator := env.Separator
	quote := env.Quote
	noQuote := false
	outSeparator := ""
	outQuote := ""
	var columns []int
	dropEmpty := false
	keyed := false
	var outputFile string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVarP(&separator, "separator", "s", separator, "input field separator")
		cmd.Flags().StringVarP(&quote, "quote", "q", quote, "input quote character")
		cmd.Flags().BoolVar(&noQuote, "no-quote", noQuote, "disable quoted-field parsing")
		cmd.Flags().StringVar(&outSeparator, "output-separator", outSeparator, "output field separator (defaults to input separator)")
		cmd.Flags().StringVar(&outQuote, "output-quote", outQuote, "output quote character (defaults to input quote)")
		cmd.Flags().IntSliceVar(&columns, "columns", columns, "keep only these column positions (0-based)")
		cmd.Flags().BoolVar(&dropEmpty, "drop-empty", dropEmpty, "drop rows whose fields are all empty")
		cmd.Flags().BoolVar(&keyed, "keyed", keyed, "treat the first row as a header and rewrite with sorted columns")
		cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "write result to file")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "convert <csv-file>",
		Short:        "transform a CSV file row by row",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")
			if outputFile == "" {
				return fmt.Errorf("error: --output is required")
			}

			settings, err := buildSettings(separator, quote, noQuote, outSeparator, outQuote)
			if err != nil {
				return err
			}
			fs := afero.NewOsFs()

			var count int
			if keyed {
				count, err = csvconduit.MapKeyedFile(cmd.Context(), fs, settings, args[0], outputFile,
					func(row csvconduit.KeyedRow) []csvconduit.KeyedRow {
						return []csvconduit.KeyedRow{row}
					})
			} else {
				var transforms []csvconduit.Transform
				if len(columns) != 0 {
					transforms = append(transforms, csvconduit.SelectColumns(columns...))
				}
				if dropEmpty {
					transforms = append(transforms, csvconduit.DropEmptyRows())
				}
				count, err = csvconduit.MapFile(cmd.Context(), fs, settings, args[0], outputFile,
					csvconduit.ChainTransforms(transforms...))
			}
			if err != nil {
				return err
			}
			if !quiet {
				log.Printf("%s: wrote %d rows\n", outputFile, count)
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdImport(env envConfig) *cobra.Command {
	separator := env.Separator
	quote := env.Quote
	noQuote := false
	dbFile := env.Database
	var table string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVarP(&separator, "separator", "s", separator, "input field separator")
		cmd.Flags().StringVarP(&quote, "quote", "q", quote, "input quote character")
		cmd.Flags().BoolVar(&noQuote, "no-quote", noQuote, "disable quoted-field parsing")
		cmd.Flags().StringVar(&dbFile, "db", dbFile, "SQLite database file (created if missing)")
		cmd.Flags().StringVarP(&table, "table", "t", table, "destination table (defaults to the file name)")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "import <csv-file>",
		Short:        "import a CSV file into a SQLite table",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("quiet")

			settings, err := buildSettings(separator, quote, noQuote, "", "")
			if err != nil {
				return err
			}

			if _, err := os.Stat(dbFile); os.IsNotExist(err) {
				if err := store.InitDatabase(dbFile); err != nil {
					return err
				}
			}
			s, err := store.NewStoreWithConfig(store.Config{Path: dbFile})
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.ImportCSV(cmd.Context(), afero.NewOsFs(), settings, args[0], table)
			if err != nil {
				return err
			}
			if quiet {
				return nil
			}
			if result.Duplicate {
				log.Printf("%s: already imported into %s (%d rows)\n", args[0], result.Table, result.Rows)
			} else {
				log.Printf("%s: imported %d rows into %s (%d lines skipped)\n", args[0], result.Rows, result.Table, result.Skipped)
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	short := false
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print the csvconduit version",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := csvconduit.Version()
			if short {
				fmt.Println(v.Core())
				return nil
			}
			fmt.Printf("csvconduit %s\n", v.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", short, "print just the bare version number")
	return cmd
}

// buildSettings turns flag strings into Settings. Separator and quote
// flags accept a single character or the escapes \t and \0.
func buildSettings(separator, quote string, noQuote bool, outSeparator, outQuote string) (*csvconduit.Settings, error) {
	opts := []csvconduit.Option{}

	sep, err := parseByteFlag("separator", separator)
	if err != nil {
		return nil, err
	}
	opts = append(opts, csvconduit.WithSeparator(sep))

	if noQuote {
		opts = append(opts, csvconduit.WithoutQuoting())
	} else {
		q, err := parseByteFlag("quote", quote)
		if err != nil {
			return nil, err
		}
		opts = append(opts, csvconduit.WithQuote(q))
	}

	if outSeparator == "" {
		outSeparator = separator
	}
	outSep, err := parseByteFlag("output-separator", outSeparator)
	if err != nil {
		return nil, err
	}
	opts = append(opts, csvconduit.WithOutputSeparator(outSep))

	if outQuote == "" {
		outQuote = quote
	}
	outQ, err := parseByteFlag("output-quote", outQuote)
	if err != nil {
		return nil, err
	}
	opts = append(opts, csvconduit.WithOutputQuote(outQ))

	return csvconduit.NewSettings(opts...)
}

func parseByteFlag(name, value string) (byte, error) {
	switch value {
	case `\t`:
		return '\t', nil
	case `\0`:
		return 0, nil
	}
	if len(value) != 1 {
		return 0, fmt.Errorf("error: --%s must be a single character", name)
	}
	return value[0], nil
}
