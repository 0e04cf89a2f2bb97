package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	frontedit "github.com/goliatone/go-frontedit"
	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/assets"
	"github.com/goliatone/go-frontedit/pkg/i18n"
	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/orchestrator"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store/dynamo"
	"github.com/goliatone/go-frontedit/pkg/store/memory"
)

// loadTemplates reads every configured template source into one set.
func (a *app) loadTemplates(ctx context.Context) (*schema.Set, error) {
	set := schema.NewSet()
	for _, path := range a.settings.Schema.Files {
		loaded, err := loadTemplatePath(path)
		if err != nil {
			return nil, err
		}
		set.Merge(loaded)
	}
	if path := a.settings.Schema.OpenAPI; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		loaded, err := schema.LoadOpenAPI(ctx, data)
		if err != nil {
			return nil, err
		}
		set.Merge(loaded)
	}
	return set, nil
}

func loadTemplatePath(path string) (*schema.Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("template source: %w", err)
	}
	if info.IsDir() {
		return schema.LoadFS(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	return schema.LoadYAML(data)
}

// openStore builds the configured record store. The memory store is seeded
// from fixtures, whose inline templates are merged into templates.
func (a *app) openStore(ctx context.Context, templates *schema.Set) (model.Store, error) {
	switch a.settings.Store.Driver {
	case "dynamo":
		st, err := a.openDynamo(ctx, templates)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		st := memory.New(memory.WithLogger(a.logger))
		if path := a.settings.Store.Fixtures; path != "" {
			merged, err := st.LoadFixtureFile(path, templates)
			if err != nil {
				return nil, err
			}
			templates.Merge(merged)
		}
		return st, nil
	}
}

func (a *app) openDynamo(ctx context.Context, templates *schema.Set) (*dynamo.Store, error) {
	cfg := a.settings.Store.Dynamo
	dial := a.dialDynamo
	if dial == nil {
		dial = func(ctx context.Context, opts dynamo.ClientOptions) (dynamo.Client, error) {
			return dynamo.NewClient(ctx, opts)
		}
	}
	client, err := dial(ctx, dynamo.ClientOptions{
		Profile:  cfg.Profile,
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	config := dynamo.DefaultConfig()
	if cfg.Table != "" {
		config.Table = cfg.Table
	}
	if cfg.PathIndex != "" {
		config.PathIndex = cfg.PathIndex
	}
	return dynamo.New(client, templates, config, dynamo.WithLogger(a.logger)), nil
}

// newOrchestrator wires an orchestrator from settings.
func (a *app) newOrchestrator(st model.Store, extra ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	cfg := a.settings.Editor

	languages, err := i18n.ParseLanguages(a.settings.Languages)
	if err != nil {
		return nil, err
	}

	assetOpts := []assets.Option{assets.WithPrefix(a.settings.Serve.AssetPath)}
	if len(cfg.Themes) > 0 {
		selector := assets.NewManifestSelector()
		for _, path := range cfg.Themes {
			manifest, err := assets.LoadManifestFile(path)
			if err != nil {
				return nil, err
			}
			selector.Add(manifest)
		}
		assetOpts = append(assetOpts, assets.WithSelector(selector, cfg.Theme, cfg.Variant))
	}
	resolver, err := assets.NewResolver(assetOpts...)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithStore(st),
		orchestrator.WithAccess(access.NewResolver(access.WithPermission(cfg.Permission))),
		orchestrator.WithAssets(resolver),
		orchestrator.WithLanguages(languages),
		orchestrator.WithMarkers(cfg.Tag, cfg.Attribute),
		orchestrator.WithSaveURL(cfg.SaveURL),
		orchestrator.WithEditURL(cfg.EditURL),
		orchestrator.WithCSRFField(cfg.CSRFField),
		orchestrator.WithLogger(a.logger),
	}
	opts = append(opts, extra...)

	o := frontedit.New(opts...)
	if err := o.Err(); err != nil {
		return nil, err
	}
	return o, nil
}

// actorFor returns a static actor. Without explicit permissions a named
// user receives the configured serve permissions, if any.
func (a *app) actorFor(user string, permissions []string) model.Actor {
	user = strings.TrimSpace(user)
	if user == "" {
		return model.Guest
	}
	if len(permissions) == 0 {
		permissions = a.settings.Serve.Users[user].Permissions
	}
	return model.StaticActor{Username: user, Permissions: permissions}
}
