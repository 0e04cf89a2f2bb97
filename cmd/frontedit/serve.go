package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	frontedit "github.com/goliatone/go-frontedit"
	"github.com/goliatone/go-frontedit/cmd/frontedit/templates"
	"github.com/goliatone/go-frontedit/components/savehandler"
	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/orchestrator"
	"github.com/goliatone/go-frontedit/pkg/render"
	"github.com/goliatone/go-frontedit/pkg/render/template/gotemplate"
	"github.com/goliatone/go-frontedit/pkg/save"
	"github.com/goliatone/go-frontedit/pkg/store"
)

const sessionCookieName = "frontedit_session"

type contextKey string

const sessionKey contextKey = "session"

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve record pages with in-place editing",
		Long: `The serve command renders each record through the pongo2 page template named
after its record template (pages/<template>.tpl), processes edit markers for
authenticated users and mounts the save endpoint, the modal edit form and the
editor assets. Users authenticate with HTTP basic auth against the users
configured in the settings file.

Example:
  frontedit serve --config frontedit.yaml --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.settings.Serve.Addr = addr
			}
			return runServe(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides settings)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	srv, err := newServer(ctx, a)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              a.settings.Serve.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		a.logger.Info("serve: listening", "addr", httpServer.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

type server struct {
	settings *Settings
	logger   *slog.Logger
	store    model.Store
	editor   *orchestrator.Orchestrator
	access   *access.Resolver
	pages    *gotemplate.Engine
}

func newServer(ctx context.Context, a *app) (*server, error) {
	templateSet, err := a.loadTemplates(ctx)
	if err != nil {
		return nil, err
	}
	st, err := a.openStore(ctx, templateSet)
	if err != nil {
		return nil, err
	}
	o, err := a.newOrchestrator(st, orchestrator.WithTokens(save.NewSessionTokens()))
	if err != nil {
		return nil, err
	}
	languages := o.Languages()
	pages, err := gotemplate.New(
		gotemplate.WithBaseDir(a.settings.Serve.Pages),
		gotemplate.WithFS(templates.FS),
		gotemplate.WithGlobalData(map[string]any{
			"site": map[string]any{
				"asset_path": strings.TrimRight(a.settings.Serve.AssetPath, "/"),
				"save_url":   a.settings.Editor.SaveURL,
			},
		}),
		gotemplate.WithTemplateFunc(map[string]any{
			"locale_of": func(id any) string {
				n, _ := strconv.Atoi(fmt.Sprint(id))
				return languages.Locale(n)
			},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("serve: page templates: %w", err)
	}
	return &server{
		settings: a.settings,
		logger:   a.logger,
		store:    st,
		editor:   o,
		access:   access.NewResolver(access.WithPermission(a.settings.Editor.Permission)),
		pages:    pages,
	}, nil
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.session)

	assetPath := strings.TrimRight(s.settings.Serve.AssetPath, "/")
	r.Handle(assetPath+"/*", http.StripPrefix(assetPath+"/", http.FileServerFS(frontedit.AssetsFS())))

	saveComponent := savehandler.New(
		savehandler.WithRoutePath(s.settings.Editor.SaveURL),
		savehandler.WithCSRFField(s.settings.Editor.CSRFField),
		savehandler.WithSaver(s.editor),
		savehandler.WithActor(s.actor),
		savehandler.WithSession(sessionID),
	)
	if _, err := saveComponent.RegisterRoutes(r, ""); err != nil {
		s.logger.Error("serve: save endpoint not mounted", "error", err)
	}

	r.Get(s.settings.Editor.EditURL, s.editForm)
	r.Post(s.settings.Editor.EditURL, s.editForm)
	r.Get("/*", s.page)
	return r
}

// session ensures every visitor carries a session cookie; CSRF tokens are
// minted per session.
func (s *server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			id = cookie.Value
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
	})
}

func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

// actor authenticates basic-auth credentials against the configured users.
func (s *server) actor(r *http.Request) model.Actor {
	user, password, ok := r.BasicAuth()
	if !ok {
		return model.Guest
	}
	account, known := s.settings.Serve.Users[user]
	if !known || subtle.ConstantTimeCompare([]byte(password), []byte(account.Password)) != 1 {
		return model.Guest
	}
	return model.StaticActor{Username: user, Permissions: account.Permissions}
}

func (s *server) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, err := s.store.Get(ctx, r.URL.Path)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("serve: load record", "path", r.URL.Path, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	language := queryInt(r, "lang")
	if aware, ok := rec.(model.LanguageAware); ok {
		aware.SetLanguage(language)
	}
	html, err := s.pages.RenderTemplate(rec.Template(), pageData(rec, language))
	if err != nil {
		s.logger.Error("serve: render page", "template", rec.Template(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	out, err := s.editor.Transform(ctx, orchestrator.Request{
		Actor:    s.actor(r),
		Record:   rec,
		Session:  sessionID(r),
		Language: language,
		Theme:    s.settings.Editor.Theme,
		Variant:  s.settings.Editor.Variant,
	}, html)
	if err != nil {
		s.logger.Error("serve: transform page", "record", rec.ID(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// pageData exposes a record to page templates. Formatted values are markup
// and need the safe filter.
func pageData(rec model.Record, language int) map[string]any {
	fields := make(map[string]any)
	raw := make(map[string]any)
	for _, field := range rec.Fields() {
		fields[field.Name] = rec.Formatted(field.Name)
		raw[field.Name] = rec.Unformatted(field.Name)
	}
	return map[string]any{
		"record": map[string]any{
			"id":       formatID(rec.ID()),
			"path":     rec.Path(),
			"template": rec.Template(),
		},
		"fields":   fields,
		"raw":      raw,
		"language": strconv.Itoa(language),
	}
}

// editForm renders, and on POST applies, the modal edit form for the fields
// named in the query.
func (s *server) editForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := s.actor(r)
	rec, err := s.store.Get(ctx, r.URL.Query().Get("id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if !s.access.CanEditRecord(actor, rec) {
		w.Header().Set("WWW-Authenticate", `Basic realm="frontedit"`)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	language := queryInt(r, "lang")

	var result *save.Result
	if r.Method == http.MethodPost {
		payload, err := savehandler.Decode(r, savehandler.NewOptions(savehandler.WithCSRFField(s.settings.Editor.CSRFField)))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		language = payload.Language
		saved := s.editor.Save(ctx, save.Request{
			Entries:  payload.Entries,
			Actor:    actor,
			Language: payload.Language,
			Session:  sessionID(r),
			Token:    payload.Token,
			Modal:    true,
		})
		result = &saved
		if fresh, err := s.store.Get(ctx, formatID(rec.ID())); err == nil {
			rec = fresh
		}
	}
	if aware, ok := rec.(model.LanguageAware); ok {
		aware.SetLanguage(language)
	}

	var fields []map[string]any
	for _, name := range strings.Split(r.URL.Query().Get("fields"), ",") {
		name = strings.TrimSpace(name)
		field, ok := rec.Field(name)
		if !ok || !s.access.CanEdit(actor, rec, name) {
			continue
		}
		value := rec.Unformatted(name)
		fields = append(fields, map[string]any{
			"name":      field.Name,
			"label":     fieldLabel(field),
			"input":     "fields[" + save.Key(rec.ID(), field.Name) + "]",
			"value":     value,
			"multiline": field.Caps.Has(model.CapMultiline),
			"checkbox":  field.IsType(model.TypeCheckbox),
			"checked":   value == "true",
		})
	}

	hidden := render.MergeHiddenFields(nil,
		render.CSRFToken(s.settings.Editor.CSRFField, s.editor.Token(sessionID(r))),
		render.Hidden("id", formatID(rec.ID())),
		render.LanguageField(orchestrator.DefaultLanguageField, language),
	)
	data := map[string]any{
		"record": map[string]any{"id": formatID(rec.ID()), "path": rec.Path()},
		"locale": s.editor.Languages().Locale(language),
		"action": r.URL.RequestURI(),
		"hidden": render.HiddenInputs(hidden),
		"fields": fields,
	}
	if result != nil {
		data["status"] = result.Status.String()
		data["message"] = resultMessage(*result)
	}

	html, err := s.pages.RenderTemplate("edit", data)
	if err != nil {
		s.logger.Error("serve: render edit form", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func resultMessage(result save.Result) string {
	switch result.Status {
	case save.StatusSuccess:
		return "Saved."
	case save.StatusNoChanges:
		return "No changes."
	default:
		return result.Error
	}
}

func fieldLabel(field model.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func queryInt(r *http.Request, name string) int {
	value, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || value < 0 {
		return 0
	}
	return value
}
