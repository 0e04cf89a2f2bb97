package schema

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-frontedit/pkg/model"
)

const (
	extensionType      = "x-frontedit-type"
	extensionWidget    = "x-frontedit-widget"
	extensionLanguages = "x-frontedit-languages"
	extensionSkip      = "x-frontedit-skip"
)

// LoadOpenAPI turns every object schema under components.schemas into a
// template. Properties become fields ordered by name; ids follow that order.
// Property schemas may set x-frontedit-type, x-frontedit-widget,
// x-frontedit-languages and x-frontedit-skip to refine the mapping.
func LoadOpenAPI(ctx context.Context, data []byte) (*Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("schema: openapi document is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("schema: load openapi document: %w", err)
	}

	set := NewSet()
	if doc.Components == nil {
		return set, nil
	}
	for name, ref := range doc.Components.Schemas {
		if ref == nil || ref.Value == nil || !isObject(ref.Value) {
			continue
		}
		set.Add(templateFromSchema(name, ref.Value))
	}
	return set, nil
}

func templateFromSchema(name string, src *openapi3.Schema) Template {
	tpl := Template{Name: name, Label: strings.TrimSpace(src.Title)}

	names := make([]string, 0, len(src.Properties))
	for prop := range src.Properties {
		names = append(names, prop)
	}
	sort.Strings(names)

	required := make(map[string]struct{}, len(src.Required))
	for _, prop := range src.Required {
		required[prop] = struct{}{}
	}

	for _, prop := range names {
		ref := src.Properties[prop]
		if ref == nil || ref.Value == nil || ref.Value.ReadOnly || truthyExtension(ref.Value.Extensions[extensionSkip]) {
			continue
		}
		field := fieldFromSchema(prop, ref.Value)
		field.ID = len(tpl.Fields) + 1
		if _, ok := required[prop]; ok {
			field.Config = setConfig(field.Config, "required", "true")
		}
		tpl.Fields = append(tpl.Fields, ResolveCapabilities(field, nil, truthyExtension(ref.Value.Extensions[extensionLanguages])))
	}
	return tpl
}

func fieldFromSchema(name string, src *openapi3.Schema) model.Field {
	field := model.Field{
		Name:  name,
		Label: strings.TrimSpace(src.Title),
		Type:  mapType(src),
	}
	if field.Label == "" {
		field.Label = name
	}
	if custom := extensionString(src.Extensions[extensionType]); custom != "" && custom != field.Type {
		field.Inherits = []string{field.Type}
		field.Type = custom
	}
	if widget := extensionString(src.Extensions[extensionWidget]); widget != "" {
		field.Config = setConfig(field.Config, "widget", widget)
	}
	if src.MaxLength != nil {
		field.Config = setConfig(field.Config, "maxlength", strconv.FormatUint(*src.MaxLength, 10))
	}
	if src.Min != nil {
		field.Config = setConfig(field.Config, "min", strconv.FormatFloat(*src.Min, 'f', -1, 64))
	}
	if src.Max != nil {
		field.Config = setConfig(field.Config, "max", strconv.FormatFloat(*src.Max, 'f', -1, 64))
	}
	return field
}

func mapType(src *openapi3.Schema) string {
	switch {
	case src.Type == nil:
		return model.TypeText
	case src.Type.Is("integer"):
		return model.TypeInteger
	case src.Type.Is("number"):
		return model.TypeFloat
	case src.Type.Is("boolean"):
		return model.TypeCheckbox
	case src.Type.Is("object"), src.Type.Is("array"):
		return model.TypeJSON
	}
	switch strings.ToLower(src.Format) {
	case "email":
		return model.TypeEmail
	case "uri", "url":
		return model.TypeURL
	case "markdown":
		return model.TypeMarkdown
	case "html":
		return model.TypeRichText
	case "textarea", "multiline":
		return model.TypeTextarea
	}
	return model.TypeText
}

func isObject(src *openapi3.Schema) bool {
	return (src.Type != nil && src.Type.Is("object")) || len(src.Properties) > 0
}

func setConfig(config map[string]string, key, value string) map[string]string {
	if config == nil {
		config = make(map[string]string)
	}
	config[key] = value
	return config
}

func extensionString(value any) string {
	if value == nil {
		return ""
	}
	if str, ok := value.(string); ok {
		return strings.TrimSpace(str)
	}
	return strings.Trim(strings.TrimSpace(fmt.Sprint(value)), `"`)
}

func truthyExtension(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		parsed, err := strconv.ParseBool(extensionString(v))
		return err == nil && parsed
	}
}
