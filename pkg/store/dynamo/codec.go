package dynamo

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/schema"
	"github.com/goliatone/go-frontedit/pkg/store"
)

// item is the stored layout without field values. Values live in the
// "values" map attribute and are encoded per field type.
type item struct {
	ID         int64    `dynamodbav:"id"`
	Path       string   `dynamodbav:"path,omitempty"`
	Template   string   `dynamodbav:"template"`
	Version    int64    `dynamodbav:"version"`
	Locked     []string `dynamodbav:"locked,omitempty"`
	ReadOnly   bool     `dynamodbav:"read_only,omitempty"`
	Owner      int64    `dynamodbav:"owner,omitempty"`
	OwnerField string   `dynamodbav:"owner_field,omitempty"`
}

const valuesAttr = "values"

func encodeItem(rec *store.Record, owner int64, ownerField string) (map[string]types.AttributeValue, error) {
	locked := rec.Locked()
	sort.Strings(locked)
	av, err := attributevalue.MarshalMap(item{
		ID:         rec.ID(),
		Path:       rec.Path(),
		Template:   rec.Template(),
		Version:    rec.Version(),
		Locked:     locked,
		ReadOnly:   rec.ReadOnly(),
		Owner:      owner,
		OwnerField: ownerField,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: marshal record %d: %w", rec.ID(), err)
	}

	values := make(map[string]types.AttributeValue)
	for name, value := range rec.Values() {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, fmt.Errorf("dynamo: record %d field %q: %w", rec.ID(), name, err)
		}
		values[name] = encoded
	}
	av[valuesAttr] = &types.AttributeValueMemberM{Value: values}
	return av, nil
}

func encodeValue(value any) (types.AttributeValue, error) {
	switch v := value.(type) {
	case store.LanguageValue:
		out := make(map[string]types.AttributeValue, len(v))
		for language, text := range v {
			out[strconv.Itoa(language)] = &types.AttributeValueMemberS{Value: text}
		}
		return &types.AttributeValueMemberM{Value: out}, nil
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	default:
		return attributevalue.Marshal(value)
	}
}

func decodeItem(raw map[string]types.AttributeValue, templates *schema.Set) (item, schema.Template, map[string]any, error) {
	var head item
	if err := attributevalue.UnmarshalMap(raw, &head); err != nil {
		return item{}, schema.Template{}, nil, fmt.Errorf("dynamo: unmarshal record: %w", err)
	}
	tpl, ok := templates.Lookup(head.Template)
	if !ok {
		return item{}, schema.Template{}, nil, fmt.Errorf("dynamo: record %d uses unknown template %q", head.ID, head.Template)
	}

	values := make(map[string]any)
	stored, _ := raw[valuesAttr].(*types.AttributeValueMemberM)
	if stored == nil {
		return head, tpl, values, nil
	}
	for name, av := range stored.Value {
		field, ok := tpl.Field(name)
		if !ok {
			continue
		}
		value, err := decodeValue(field, av)
		if err != nil {
			return item{}, schema.Template{}, nil, fmt.Errorf("dynamo: record %d field %q: %w", head.ID, name, err)
		}
		values[name] = value
	}
	return head, tpl, values, nil
}

func decodeValue(field model.Field, av types.AttributeValue) (any, error) {
	if field.Caps.Has(model.CapLanguages) {
		switch v := av.(type) {
		case *types.AttributeValueMemberM:
			out := store.LanguageValue{}
			for key, member := range v.Value {
				language, err := strconv.Atoi(key)
				if err != nil {
					return nil, fmt.Errorf("language id %q: %w", key, err)
				}
				text, ok := member.(*types.AttributeValueMemberS)
				if !ok {
					return nil, fmt.Errorf("language %d: expected a string", language)
				}
				out[language] = text.Value
			}
			return out, nil
		case *types.AttributeValueMemberS:
			return store.NewLanguageValue(v.Value), nil
		case *types.AttributeValueMemberNULL:
			return store.LanguageValue{}, nil
		}
	}

	switch v := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberBOOL:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		if field.IsType(model.TypeInteger) {
			return strconv.ParseInt(v.Value, 10, 64)
		}
		return strconv.ParseFloat(v.Value, 64)
	default:
		var out any
		if err := attributevalue.Unmarshal(av, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
