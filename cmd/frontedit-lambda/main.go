// Command frontedit-lambda runs the save endpoint on AWS Lambda against the
// DynamoDB record store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/goliatone/go-frontedit/internal/logging"
	"github.com/goliatone/go-frontedit/pkg/access"
	"github.com/goliatone/go-frontedit/pkg/save"
	"github.com/goliatone/go-frontedit/pkg/savelambda"
	"github.com/goliatone/go-frontedit/pkg/store/dynamo"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(logging.Options{Format: logging.FormatJSON, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer closer.Close()

	templates, err := loadTemplates(cfg.Templates)
	if err != nil {
		return err
	}
	client, err := dynamo.NewClient(ctx, dynamo.ClientOptions{Endpoint: cfg.Endpoint})
	if err != nil {
		return err
	}
	st := dynamo.New(client, templates, cfg.Dynamo, dynamo.WithLogger(logger))

	pipeline := save.NewPipeline(st,
		save.WithAccess(access.NewResolver(access.WithPermission(cfg.Permission))),
		save.WithLogger(logger),
	)
	handler := savelambda.NewHandler(pipeline, logger)
	lambda.Start(handler.HandleRequest)
	return nil
}
