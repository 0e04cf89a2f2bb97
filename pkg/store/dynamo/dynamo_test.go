package dynamo_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
	"github.com/goliatone/go-frontedit/pkg/store/dynamo"
)

// fakeClient keeps items in memory and understands the update expressions
// written by Store.Save.
type fakeClient struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
	queries int
	failGet error
}

func newFakeClient() *fakeClient {
	return &fakeClient{items: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	if n, ok := key["id"].(*types.AttributeValueMemberN); ok {
		return n.Value
	}
	return ""
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	want := in.ExpressionAttributeValues[":path"].(*types.AttributeValueMemberS).Value
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if path, ok := item["path"].(*types.AttributeValueMemberS); ok && path.Value == want {
			out.Items = append(out.Items, map[string]types.AttributeValue{"id": item["id"], "path": item["path"]})
		}
	}
	return out, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, in)

	current, ok := f.items[keyOf(in.Key)]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing item")}
	}
	version := current["version"].(*types.AttributeValueMemberN).Value
	expected := in.ExpressionAttributeValues[":expected_version"].(*types.AttributeValueMemberN).Value
	if version != expected {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("version mismatch")}
	}

	next := make(map[string]types.AttributeValue, len(current))
	for k, v := range current {
		next[k] = v
	}
	values := map[string]types.AttributeValue{}
	if stored, ok := current["values"].(*types.AttributeValueMemberM); ok {
		for k, v := range stored.Value {
			values[k] = v
		}
	}
	if all, ok := in.ExpressionAttributeValues[":values"].(*types.AttributeValueMemberM); ok {
		values = all.Value
	}
	for i := 0; ; i++ {
		name, ok := in.ExpressionAttributeNames[fmt.Sprintf("#f%d", i)]
		if !ok {
			break
		}
		values[name] = in.ExpressionAttributeValues[fmt.Sprintf(":v%d", i)]
	}
	next["values"] = &types.AttributeValueMemberM{Value: values}

	n, _ := strconv.ParseInt(version, 10, 64)
	next["version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(n+1, 10)}
	f.items[keyOf(in.Key)] = next
	return &dynamodb.UpdateItemOutput{}, nil
}

var pageTemplate = schema.Template{
	Name: "basic-page",
	Fields: []model.Field{
		{ID: 1, Name: "title", Type: model.TypeText, Caps: model.CapText},
		{ID: 2, Name: "body", Type: model.TypeRichText, Caps: model.CapMultiline | model.CapRichText | model.CapLanguages},
		{ID: 3, Name: "year", Type: model.TypeInteger},
		{ID: 4, Name: "rating", Type: model.TypeFloat},
		{ID: 5, Name: "featured", Type: model.TypeCheckbox},
	},
}

func newStore(t *testing.T) (*dynamo.Store, *fakeClient) {
	t.Helper()
	templates := schema.NewSet()
	templates.Add(pageTemplate)

	client := newFakeClient()
	st := dynamo.New(client, templates, dynamo.Config{Table: "pages"})

	ctx := context.Background()
	require.NoError(t, st.Put(ctx, store.NewRecord(5, "/about/", pageTemplate,
		store.WithLocked("year"),
		store.WithValues(map[string]any{
			"title":    "About",
			"body":     store.LanguageValue{0: "<p>Hello</p>", 2: "<p>Hallo</p>"},
			"year":     int64(2001),
			"rating":   4.5,
			"featured": true,
		}),
	)))
	return st, client
}

func TestStore_GetByID(t *testing.T) {
	st, _ := newStore(t)

	rec, err := st.Get(context.Background(), "5")
	require.NoError(t, err)

	assert.Equal(t, int64(5), rec.ID())
	assert.Equal(t, "/about/", rec.Path())
	assert.Equal(t, "basic-page", rec.Template())
	assert.Equal(t, "About", rec.Get("title"))
	assert.Equal(t, int64(2001), rec.Get("year"))
	assert.Equal(t, 4.5, rec.Get("rating"))
	assert.Equal(t, true, rec.Get("featured"))
	assert.Equal(t, store.LanguageValue{0: "<p>Hello</p>", 2: "<p>Hallo</p>"}, rec.Get("body"))
	assert.False(t, rec.Editable("year"), "locked fields stay locked")
	assert.True(t, rec.Editable("title"))
}

func TestStore_GetByPath(t *testing.T) {
	st, client := newStore(t)

	rec, err := st.Get(context.Background(), "about")
	require.NoError(t, err)
	assert.Equal(t, int64(5), rec.ID())
	assert.Equal(t, 1, client.queries)
}

func TestStore_GetNotFound(t *testing.T) {
	st, _ := newStore(t)

	for _, locator := range []string{"", "77", "/missing/"} {
		_, err := st.Get(context.Background(), locator)
		require.Error(t, err, "locator %q", locator)
		assert.True(t, errors.Is(err, store.ErrNotFound), "locator %q: %v", locator, err)
	}
}

func TestStore_GetClientError(t *testing.T) {
	st, client := newStore(t)
	client.failGet = errors.New("throttled")

	_, err := st.Get(context.Background(), "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestStore_SaveChangedFields(t *testing.T) {
	st, client := newStore(t)
	ctx := context.Background()

	rec, err := st.Get(ctx, "5")
	require.NoError(t, err)
	rec.TrackChanges(true)
	rec.Set("title", "About us")

	require.NoError(t, st.Save(ctx, rec))
	require.Len(t, client.updates, 1)

	update := client.updates[0]
	assert.Equal(t, "SET #values.#f0 = :v0, #version = #version + :one", aws.ToString(update.UpdateExpression))
	assert.Equal(t, "#version = :expected_version", aws.ToString(update.ConditionExpression))
	assert.Equal(t, "title", update.ExpressionAttributeNames["#f0"])
	assert.Empty(t, rec.Changes(), "changes are cleared after a commit")

	reloaded, err := st.Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "About us", reloaded.Get("title"))
	assert.Equal(t, "<p>Hello</p>", reloaded.Unformatted("body"))
	assert.Equal(t, int64(1), reloaded.(*store.Record).Version())
}

func TestStore_SaveLanguageValue(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	rec, err := st.Get(ctx, "5")
	require.NoError(t, err)
	rec.TrackChanges(true)
	body := rec.Get("body").(store.LanguageValue)
	body.SetLanguageValue(2, "<p>Guten Tag</p>")
	rec.TrackChange("body")

	require.NoError(t, st.Save(ctx, rec))

	reloaded, err := st.Get(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, store.LanguageValue{0: "<p>Hello</p>", 2: "<p>Guten Tag</p>"}, reloaded.Get("body"))
}

func TestStore_SaveWithoutChangesWritesAllValues(t *testing.T) {
	st, client := newStore(t)
	ctx := context.Background()

	rec, err := st.Get(ctx, "5")
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, rec))

	require.Len(t, client.updates, 1)
	assert.Equal(t, "SET #values = :values, #version = #version + :one", aws.ToString(client.updates[0].UpdateExpression))
}

func TestStore_SaveConcurrentModification(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	first, err := st.Get(ctx, "5")
	require.NoError(t, err)
	second, err := st.Get(ctx, "5")
	require.NoError(t, err)

	first.TrackChanges(true)
	first.Set("title", "First")
	require.NoError(t, st.Save(ctx, first))

	second.TrackChanges(true)
	second.Set("title", "Second")
	err = st.Save(ctx, second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrConcurrentModification), "got %v", err)
	assert.Equal(t, []string{"title"}, second.Changes(), "failed saves keep tracked changes")
}

func TestStore_DerivedRecords(t *testing.T) {
	st, _ := newStore(t)
	ctx := context.Background()

	owner, err := st.Get(ctx, "5")
	require.NoError(t, err)
	child := store.NewDerivedRecord(store.NewRecord(12, "", pageTemplate,
		store.WithValues(map[string]any{"title": "Block"}),
	), owner, "body")
	require.NoError(t, st.Put(ctx, child))

	rec, err := st.Get(ctx, "12")
	require.NoError(t, err)
	derived, ok := rec.(model.Derived)
	require.True(t, ok, "expected a derived record, got %T", rec)
	assert.Equal(t, int64(5), derived.OwnerRecord().ID())
	assert.Equal(t, "body", derived.OwnerField())
}

func TestStore_UnknownTemplate(t *testing.T) {
	client := newFakeClient()
	st := dynamo.New(client, nil, dynamo.Config{})
	require.NoError(t, st.Put(context.Background(), store.NewRecord(3, "/x/", schema.Template{Name: "ghost"})))

	_, err := st.Get(context.Background(), "3")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), `unknown template "ghost"`), err.Error())
}

func TestStore_RejectsForeignRecords(t *testing.T) {
	st, _ := newStore(t)
	err := st.Save(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrUnsupportedRecord))
}

func TestDefaultConfig(t *testing.T) {
	cfg := dynamo.DefaultConfig()
	assert.Equal(t, "frontedit_records", cfg.Table)
	assert.Equal(t, "path-index", cfg.PathIndex)
	assert.Equal(t, 8, cfg.MaxOwnerDepth)
}
