package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-frontedit/internal/prompt"
	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/save"
)

type editOptions struct {
	user        string
	permissions []string
	language    int
}

func newEditCmd(a *app) *cobra.Command {
	opts := &editOptions{}
	cmd := &cobra.Command{
		Use:   "edit <record id|path>",
		Short: "Edit record fields interactively",
		Long: `The edit command prompts for new values of the fields the user may edit and
sends them through the same save pipeline as the HTTP endpoint. No CSRF token
is required from the terminal.

Example:
  frontedit edit /about/ --fixtures site.yaml --user ed --perm record-edit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, a, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.user, "user", "u", "", "Acting user")
	flags.StringSliceVar(&opts.permissions, "perm", nil, "Permissions granted to --user")
	flags.IntVar(&opts.language, "language", 0, "Language id")
	return cmd
}

func runEdit(cmd *cobra.Command, a *app, opts *editOptions, locator string) error {
	ctx := cmd.Context()
	templates, err := a.loadTemplates(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, templates)
	if err != nil {
		return err
	}
	o, err := a.newOrchestrator(st)
	if err != nil {
		return err
	}

	rec, err := st.Get(ctx, locator)
	if err != nil {
		return fmt.Errorf("load record %s: %w", locator, err)
	}

	driver := a.driver
	if driver == nil {
		driver = prompt.NewSurveyDriver(cmd.OutOrStdout())
	}
	actor := a.actorFor(opts.user, opts.permissions)
	session := prompt.Session{
		Driver: driver,
		Access: access.NewResolver(access.WithPermission(a.settings.Editor.Permission)),
		Actor:  actor,
	}
	entries, err := session.Collect(ctx, rec)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	result := o.Save(ctx, save.Request{
		Entries:  entries,
		Actor:    actor,
		Record:   rec,
		Language: opts.language,
		Modal:    true,
	})
	a.logger.Debug("edit: saved", "record", rec.ID(), "status", result.Status.String())
	return prompt.Report(ctx, driver, result)
}
