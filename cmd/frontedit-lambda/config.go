package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store/dynamo"
)

type config struct {
	Dynamo     dynamo.Config
	Endpoint   string
	Templates  string
	Permission string
	LogLevel   string
}

// loadConfig reads the FRONTEDIT_* environment variables.
func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		Dynamo:     dynamo.DefaultConfig(),
		Endpoint:   getenv("FRONTEDIT_DYNAMO_ENDPOINT"),
		Templates:  getenv("FRONTEDIT_TEMPLATES"),
		Permission: getenv("FRONTEDIT_PERMISSION"),
		LogLevel:   getenv("FRONTEDIT_LOG_LEVEL"),
	}
	if table := getenv("FRONTEDIT_TABLE"); table != "" {
		cfg.Dynamo.Table = table
	}
	if index := getenv("FRONTEDIT_PATH_INDEX"); index != "" {
		cfg.Dynamo.PathIndex = index
	}
	if raw := getenv("FRONTEDIT_MAX_OWNER_DEPTH"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil || depth <= 0 {
			return config{}, fmt.Errorf("FRONTEDIT_MAX_OWNER_DEPTH: invalid value %q", raw)
		}
		cfg.Dynamo.MaxOwnerDepth = depth
	}
	if cfg.Templates == "" {
		return config{}, errors.New("FRONTEDIT_TEMPLATES is required")
	}
	return cfg, nil
}

// loadTemplates reads a template YAML file or a directory of them.
func loadTemplates(path string) (*schema.Set, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	if info.IsDir() {
		return schema.LoadFS(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	return schema.LoadYAML(data)
}
