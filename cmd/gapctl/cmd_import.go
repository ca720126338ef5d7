package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/pai-gapfinder/internal/curriculum"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/config"
	"github.com/p-n-ai/pai-gapfinder/internal/platform/database"
)

func newImportXLSXCmd(g *globalFlags) *cobra.Command {
	var (
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "import-xlsx <workbook.xlsx>",
		Short: "Convert an .xlsx workbook into a YAML catalogue document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := curriculum.ReadXLSX(args[0])
			if err != nil {
				return err
			}
			// Reject workbooks the engine could not load.
			if _, err := curriculum.BuildCatalogue(doc); err != nil {
				return err
			}

			if out == "" {
				source, dir, _, err := g.catalogueSource()
				if err != nil {
					return err
				}
				if source != config.SourceDir {
					return fmt.Errorf("--out is required when the catalogue source is %s", source)
				}
				out = filepath.Join(dir, "topics", "imported.yaml")
			}
			if fileExists(out) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}
			if err := curriculum.WriteDocument(doc, out); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d topics, %d gap patterns to %s\n", len(doc.Topics), len(doc.GapPatterns), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output YAML file (default <catalogue>/topics/imported.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing output file")
	return cmd
}

func newExportXLSXCmd(g *globalFlags) *cobra.Command {
	var (
		out   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "export-xlsx",
		Short: "Write the catalogue to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !isWorkbook(out) {
				return fmt.Errorf("--out must name an .xlsx file")
			}
			if fileExists(out) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}

			doc, _, err := g.readDocument(cmd.Context())
			if err != nil {
				return err
			}
			if err := curriculum.WriteXLSX(doc, out); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d topics to %s\n", len(doc.Topics), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "catalogue.xlsx", "Output workbook")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing workbook")
	return cmd
}

func newImportPostgresCmd(g *globalFlags) *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "import-postgres",
		Short: "Replace the catalogue tables in PostgreSQL with the loaded catalogue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if databaseURL == "" {
				databaseURL = cfg.Database.URL
			}
			if databaseURL == "" {
				return fmt.Errorf("no database: pass --database-url or set LEARN_DATABASE_URL")
			}

			doc, _, err := g.readDocument(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := curriculum.BuildCatalogue(doc); err != nil {
				return err
			}

			return importPostgres(cmd.Context(), databaseURL, cfg.Database, doc, func(n int) {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d topics\n", n)
			})
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default $LEARN_DATABASE_URL)")
	return cmd
}

func importPostgres(ctx context.Context, url string, dbCfg config.DatabaseConfig, doc curriculum.Document, done func(int)) error {
	db, err := database.New(ctx, database.Options{
		URL:             url,
		MaxConns:        dbCfg.MaxConns,
		MinConns:        dbCfg.MinConns,
		ApplicationName: "gapctl",
	})
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := curriculum.NewPostgresSource(db.Pool)
	if err != nil {
		return err
	}
	if err := src.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := src.Import(ctx, doc); err != nil {
		return err
	}

	slog.Debug("catalogue imported", "topics", len(doc.Topics), "grades", len(doc.Grades))
	done(len(doc.Topics))
	return nil
}
