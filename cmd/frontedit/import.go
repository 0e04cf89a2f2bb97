package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-frontedit/pkg/store/memory"
)

func newImportCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <fixtures.yaml>",
		Short: "Copy fixture records into the DynamoDB table",
		Long: `The import command loads a fixture file and writes every record, derived
records included, to the configured DynamoDB table. Existing items with the
same id are replaced.

Example:
  frontedit import site.yaml --config frontedit.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, args[0], dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the records without writing them")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, path string, dryRun bool) error {
	ctx := cmd.Context()
	if !dryRun && a.settings.Store.Driver != "dynamo" {
		return errors.New("import: store.driver must be dynamo")
	}

	templates, err := a.loadTemplates(ctx)
	if err != nil {
		return err
	}
	source := memory.New(memory.WithLogger(a.logger))
	merged, err := source.LoadFixtureFile(path, templates)
	if err != nil {
		return err
	}
	templates.Merge(merged)

	out := cmd.OutOrStdout()
	if dryRun {
		for _, id := range source.IDs() {
			rec, err := source.Get(ctx, formatID(id))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d\t%s\t%s\n", rec.ID(), rec.Template(), rec.Path())
		}
		return nil
	}

	target, err := a.openDynamo(ctx, templates)
	if err != nil {
		return err
	}
	count := 0
	for _, id := range source.IDs() {
		rec, err := source.Get(ctx, formatID(id))
		if err != nil {
			return err
		}
		if err := target.Put(ctx, rec); err != nil {
			return err
		}
		count++
	}
	fmt.Fprintf(out, "Imported %d record(s) into %s\n", count, a.settings.Store.Dynamo.Table)
	return nil
}
