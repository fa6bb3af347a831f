package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	dverrors "github.com/conneroisu/mdbook-dice/internal/errors"
	"github.com/conneroisu/mdbook-dice/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:     "scan [dir]",
	Aliases: []string{"s"},
	Short:   "List the dice notations found in Markdown sources",
	Long: `Walk a directory of Markdown sources and list every dice notation the
preprocessor would rewrite, with its file, line and variant.

Directories listed under scan.exclude (book, node_modules and .git by
default) are skipped.

Examples:
  mdbook-dice scan                 # Scan the current directory
  mdbook-dice scan src -f json     # Output as JSON
  mdbook-dice scan src --format csv
  mdbook-dice scan src -v          # Include the rendered markup`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var scanFlags *StandardFlags

func init() {
	rootCmd.AddCommand(scanCmd)

	scanFlags = AddStandardFlags(scanCmd, "output")

	AddFlagValidation(scanCmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := scanFlags.ValidateFlags(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	sourceScanner, err := scanner.NewSourceScanner(e.config, 0)
	if err != nil {
		return err
	}

	op := e.logger.StartOperation("scan")
	collector := dverrors.NewErrorCollector()
	result, err := sourceScanner.ScanDirectory(cmd.Context(), root, collector)
	if err != nil {
		op.EndWithError(cmd.Context(), err)
		return err
	}
	op.End(cmd.Context())
	findings := result.Findings

	if collector.HasErrors() {
		skipped := collector.GetErrors()
		for _, fileErr := range skipped {
			e.logger.Warn(cmd.Context(), fileErr, "Skipped file")
		}
		e.logger.Warn(cmd.Context(), nil, "Scan incomplete", "skipped", len(skipped))
	}

	if !scanFlags.Verbose {
		for i := range findings {
			findings[i].Markup = ""
		}
	}

	if !scanFlags.Quiet {
		if err := writeFindings(cmd.OutOrStdout(), strings.ToLower(scanFlags.Format), findings, result.Files); err != nil {
			return dverrors.NewOutputError("unable to write scan results", err)
		}
	}

	return collector.Err()
}

func writeFindings(w io.Writer, format string, findings []scanner.Finding, files int) error {
	if findings == nil {
		findings = []scanner.Finding{}
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(findings)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(findings)
	case "csv":
		return outputFindingsCSV(w, findings)
	case "table", "":
		return outputFindingsTable(w, findings, files)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func outputFindingsTable(w io.Writer, findings []scanner.Finding, files int) error {
	if len(findings) == 0 {
		_, err := fmt.Fprintf(w, "No dice notation found in %d files.\n", files)
		return err
	}

	title := cases.Title(language.English)
	verbose := findings[0].Markup != ""

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := "FILE\tLINE\tVARIANT\tNOTATION"
	separator := "----\t----\t-------\t--------"
	if verbose {
		header += "\tMARKUP"
		separator += "\t------"
	}
	fmt.Fprintln(tw, header)
	fmt.Fprintln(tw, separator)

	for _, f := range findings {
		row := fmt.Sprintf("%s\t%d\t%s\t%s", f.File, f.Line, title.String(f.Variant.String()), f.Notation)
		if verbose {
			row += "\t" + f.Markup
		}
		fmt.Fprintln(tw, row)
	}

	fmt.Fprintf(tw, "\nTotal: %d notations in %d files\n", len(findings), files)

	return tw.Flush()
}

func outputFindingsCSV(w io.Writer, findings []scanner.Finding) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"file", "line", "variant", "notation", "body", "markup"}); err != nil {
		return err
	}
	for _, f := range findings {
		record := []string{f.File, strconv.Itoa(f.Line), f.Variant.String(), f.Notation, f.Body, f.Markup}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
