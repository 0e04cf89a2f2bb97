// Package dynamo is a DynamoDB-backed record store. Records are single items
// keyed by numeric id with a path index for page lookups; saves use the
// stored version as an optimistic lock.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store reads and writes records in a DynamoDB table.
type Store struct {
	client    Client
	config    Config
	templates *schema.Set
	logger    *slog.Logger
}

var _ model.Store = (*Store)(nil)

// New creates a store over client. Templates resolve the field metadata of
// loaded records.
func New(client Client, templates *schema.Set, config Config, opts ...Option) *Store {
	config.validate()
	if templates == nil {
		templates = schema.NewSet()
	}
	s := &Store{
		client:    client,
		config:    config,
		templates: templates,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get resolves a numeric id or a path. Every call returns a fresh instance.
func (s *Store) Get(ctx context.Context, locator string) (model.Record, error) {
	return s.get(ctx, locator, 0)
}

func (s *Store) get(ctx context.Context, locator string, depth int) (model.Record, error) {
	raw, err := s.fetch(ctx, locator)
	if err != nil {
		return nil, err
	}
	head, tpl, values, err := decodeItem(raw, s.templates)
	if err != nil {
		return nil, err
	}

	opts := []store.RecordOption{
		store.WithValues(values),
		store.WithLocked(head.Locked...),
		store.WithVersion(head.Version),
	}
	if head.ReadOnly {
		opts = append(opts, store.WithReadOnly())
	}
	rec := store.NewRecord(head.ID, head.Path, tpl, opts...)
	if head.Owner == 0 {
		return rec, nil
	}

	if depth >= s.config.MaxOwnerDepth {
		return nil, fmt.Errorf("dynamo: record %d: owner chain too deep", head.ID)
	}
	owner, err := s.get(ctx, strconv.FormatInt(head.Owner, 10), depth+1)
	if err != nil {
		return nil, fmt.Errorf("dynamo: owner of record %d: %w", head.ID, err)
	}
	return store.NewDerivedRecord(rec, owner, head.OwnerField), nil
}

func (s *Store) fetch(ctx context.Context, locator string) (map[string]types.AttributeValue, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, fmt.Errorf("dynamo: empty locator: %w", store.ErrNotFound)
	}

	if id, err := strconv.ParseInt(locator, 10, 64); err == nil {
		result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(s.config.Table),
			Key:            recordKey(id),
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: get record %d: %w", id, err)
		}
		if result.Item == nil {
			return nil, fmt.Errorf("dynamo: record %d: %w", id, store.ErrNotFound)
		}
		return result.Item, nil
	}

	path := store.NormalizePath(locator)
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.Table),
		IndexName:              aws.String(s.config.PathIndex),
		KeyConditionExpression: aws.String("#path = :path"),
		ExpressionAttributeNames: map[string]string{
			"#path": "path",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":path": &types.AttributeValueMemberS{Value: path},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: query path %q: %w", path, err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("dynamo: path %q: %w", path, store.ErrNotFound)
	}
	// The index projects keys only on some tables; reload by id for the full item.
	id, ok := result.Items[0]["id"].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("dynamo: path %q: item without id", path)
	}
	return s.fetch(ctx, id.Value)
}

// Put writes rec as a new item, replacing any existing item with the same id.
// Derived records keep their owner reference.
func (s *Store) Put(ctx context.Context, rec model.Record) error {
	target, owner, ownerField, err := unwrap(rec)
	if err != nil {
		return err
	}
	av, err := encodeItem(target, owner, ownerField)
	if err != nil {
		return err
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("dynamo: put record %d: %w", target.ID(), err)
	}
	return nil
}

// Save writes the changed fields of rec when its version matches the stored
// version. On success the version is bumped and tracked changes are cleared.
func (s *Store) Save(ctx context.Context, rec model.Record) error {
	target, _, _, err := unwrap(rec)
	if err != nil {
		return err
	}

	exprNames := map[string]string{
		"#version": "version",
		"#values":  valuesAttr,
	}
	exprValues := map[string]types.AttributeValue{
		":one":              &types.AttributeValueMemberN{Value: "1"},
		":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(target.Version(), 10)},
	}

	values := target.Values()
	changes := target.Changes()
	var setClauses []string
	if len(changes) == 0 {
		all := make(map[string]types.AttributeValue, len(values))
		for name, value := range values {
			encoded, err := encodeValue(value)
			if err != nil {
				return fmt.Errorf("dynamo: record %d field %q: %w", target.ID(), name, err)
			}
			all[name] = encoded
		}
		exprValues[":values"] = &types.AttributeValueMemberM{Value: all}
		setClauses = append(setClauses, "#values = :values")
	} else {
		sort.Strings(changes)
		for i, name := range changes {
			encoded, err := encodeValue(values[name])
			if err != nil {
				return fmt.Errorf("dynamo: record %d field %q: %w", target.ID(), name, err)
			}
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			exprNames[nameKey] = name
			exprValues[valueKey] = encoded
			setClauses = append(setClauses, fmt.Sprintf("#values.%s = %s", nameKey, valueKey))
		}
	}
	setClauses = append(setClauses, "#version = #version + :one")

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       recordKey(target.ID()),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("#version = :expected_version"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			s.logger.Debug("dynamo: version conflict", "record", target.ID(), "expected", target.Version())
			return fmt.Errorf("dynamo: save record %d: %w", target.ID(), store.ErrConcurrentModification)
		}
		return fmt.Errorf("dynamo: save record %d: %w", target.ID(), err)
	}

	target.SetVersion(target.Version() + 1)
	target.CommitChanges()
	s.logger.Debug("dynamo: record saved", "record", target.ID(), "version", target.Version(), "fields", len(changes))
	return nil
}

func recordKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func unwrap(rec model.Record) (*store.Record, int64, string, error) {
	switch v := rec.(type) {
	case *store.Record:
		return v, 0, "", nil
	case *store.DerivedRecord:
		var owner int64
		if v.OwnerRecord() != nil {
			owner = v.OwnerRecord().ID()
		}
		return v.Record, owner, v.OwnerField(), nil
	default:
		return nil, 0, "", fmt.Errorf("dynamo: %T: %w", rec, store.ErrUnsupportedRecord)
	}
}
