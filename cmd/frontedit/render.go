package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-frontedit/pkg/orchestrator"
	"github.com/goliatone/go-frontedit/pkg/save"
)

type renderOptions struct {
	record      string
	user        string
	permissions []string
	language    int
	session     string
	theme       string
	variant     string
	output      string
}

func newRenderCmd(a *app) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render <page.html|->",
		Short: "Process edit markers in a rendered page",
		Long: `The render command reads an HTML page, resolves its edit markers against the
record store and prints the page with editing wrappers. Actors without the
edit permission get the page with every marker stripped.

Example:
  frontedit render about.html --fixtures site.yaml --record 5 --user ed --perm record-edit
  cat about.html | frontedit render - --record /about/ --user ed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a, opts, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.record, "record", "r", "", "Current record id or path")
	flags.StringVarP(&opts.user, "user", "u", "", "Acting user (guest when empty)")
	flags.StringSliceVar(&opts.permissions, "perm", nil, "Permissions granted to --user")
	flags.IntVar(&opts.language, "language", 0, "Language id")
	flags.StringVar(&opts.session, "session", "cli", "Session id used for the CSRF token")
	flags.StringVar(&opts.theme, "theme", "", "Asset theme (overrides settings)")
	flags.StringVar(&opts.variant, "variant", "", "Asset theme variant (overrides settings)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output file (stdout if empty)")
	return cmd
}

func runRender(cmd *cobra.Command, a *app, opts *renderOptions, input string) error {
	ctx := cmd.Context()
	page, err := readInput(cmd, input)
	if err != nil {
		return err
	}

	templates, err := a.loadTemplates(ctx)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx, templates)
	if err != nil {
		return err
	}
	o, err := a.newOrchestrator(st, orchestrator.WithTokens(save.NewSessionTokens()))
	if err != nil {
		return err
	}

	req := orchestrator.Request{
		Actor:    a.actorFor(opts.user, opts.permissions),
		Session:  opts.session,
		Language: opts.language,
		Theme:    firstNonEmpty(opts.theme, a.settings.Editor.Theme),
		Variant:  firstNonEmpty(opts.variant, a.settings.Editor.Variant),
	}
	if opts.record != "" {
		rec, err := st.Get(ctx, opts.record)
		if err != nil {
			return fmt.Errorf("load record %s: %w", opts.record, err)
		}
		req.Record = rec
	}

	out, err := o.Transform(ctx, req, page)
	if err != nil {
		return err
	}
	return writeOutput(cmd, opts.output, out)
}

func newStripCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "strip <page.html|->",
		Short: "Remove every edit marker from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			o, err := a.newOrchestrator(nil)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, o.Strip(page))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (stdout if empty)")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return string(data), nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Page written to %s\n", path)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
