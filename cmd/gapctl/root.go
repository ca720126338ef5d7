package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	catalogue string
	json      bool
	verbose   bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "gapctl",
		Short: "Find the prerequisite gaps behind a struggling topic",
		Long: "gapctl loads a topic catalogue (a YAML directory or an .xlsx workbook),\n" +
			"checks it for authoring defects and runs gap diagnoses against it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("reading .env: %w", err)
			}
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&g.catalogue, "catalogue", "c", "", "Catalogue directory or .xlsx workbook (default $LEARN_CATALOGUE_PATH or ./catalogue)")
	f.BoolVar(&g.json, "json", false, "Print results as JSON")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "Log loader details to stderr")

	root.AddCommand(
		newValidateCmd(g),
		newTopicsCmd(g),
		newDiagnoseCmd(g),
		newPlanCmd(g),
		newImportXLSXCmd(g),
		newExportXLSXCmd(g),
		newImportPostgresCmd(g),
	)
	return root
}

// catalogueSource resolves where the catalogue comes from. The --catalogue
// flag names a directory or workbook; without it the LEARN_CATALOGUE_*
// settings decide, and cfg is set for the database-backed sources.
func (g *globalFlags) catalogueSource() (source, path string, cfg *config.Config, err error) {
	if g.catalogue != "" {
		if isWorkbook(g.catalogue) {
			return config.SourceXLSX, g.catalogue, nil, nil
		}
		return config.SourceDir, g.catalogue, nil, nil
	}

	cfg, err = config.Load()
	if err != nil {
		return "", "", nil, err
	}
	if err := cfg.Validate(); err != nil {
		return "", "", nil, err
	}

	source = cfg.Catalogue.Source
	if source == config.SourceDir && isWorkbook(cfg.Catalogue.Path) {
		source = config.SourceXLSX
	}
	return source, cfg.Catalogue.Path, cfg, nil
}

// readDocument reads the catalogue as one merged document. Schema violations
// in a directory catalogue are returned alongside.
func (g *globalFlags) readDocument(ctx context.Context) (curriculum.Document, map[string][]string, error) {
	source, path, cfg, err := g.catalogueSource()
	if err != nil {
		return curriculum.Document{}, nil, err
	}

	switch source {
	case config.SourcePostgres, config.SourceNeo4j:
		cat, err := loadRemoteCatalogue(ctx, cfg)
		if err != nil {
			return curriculum.Document{}, nil, err
		}
		return cat.Document(), nil, nil
	case config.SourceXLSX:
		doc, err := curriculum.ReadXLSX(path)
		return doc, nil, err
	}

	loader, err := curriculum.NewLoader(path)
	if err != nil {
		return curriculum.Document{}, nil, err
	}
	return loader.Document(), loader.Violations(), nil
}

func (g *globalFlags) loadCatalogue(ctx context.Context) (*curriculum.Catalogue, error) {
	doc, _, err := g.readDocument(ctx)
	if err != nil {
		return nil, err
	}
	return curriculum.BuildCatalogue(doc)
}

func isWorkbook(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func splitCodes(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func printRule(w io.Writer, n int) {
	fmt.Fprintln(w, strings.Repeat("─", n))
}
