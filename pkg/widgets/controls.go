package widgets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/sanitize"
)

type textControl struct {
	field     model.Field
	value     string
	original  string
	multiline bool
	check     func(string) error
}

// NewText builds a single-line text control.
func NewText(field model.Field) Control {
	return &textControl{field: field}
}

// NewTextarea builds a multi-line text control.
func NewTextarea(field model.Field) Control {
	return &textControl{field: field, multiline: true}
}

// NewEmail builds a text control accepting a single address.
func NewEmail(field model.Field) Control {
	return &textControl{field: field, check: func(value string) error {
		if _, err := mail.ParseAddress(value); err != nil {
			return errors.New("must be a valid email address")
		}
		return nil
	}}
}

// NewURL builds a text control accepting absolute http(s) URLs.
func NewURL(field model.Field) Control {
	return &textControl{field: field, check: func(value string) error {
		parsed, err := url.ParseRequestURI(value)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return errors.New("must be an absolute http or https URL")
		}
		return nil
	}}
}

func (c *textControl) SetValue(value any) {
	c.value = stringify(value)
	c.original = c.value
}

func (c *textControl) Value() any { return c.value }

func (c *textControl) ProcessInput(raw string) []error {
	value := raw
	if !c.multiline {
		value = strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(value))
	} else {
		value = strings.ReplaceAll(value, "\r\n", "\n")
	}
	if errs := checkText(c.field, value); len(errs) > 0 {
		return errs
	}
	if value != "" && c.check != nil {
		if err := c.check(value); err != nil {
			return []error{err}
		}
	}
	c.value = value
	return nil
}

func (c *textControl) Changed() bool { return c.value != c.original }

type richTextControl struct {
	textControl
}

// NewRichText builds a control for markup-bearing fields. Submitted markup is
// cleaned with the rich text policy.
func NewRichText(field model.Field) Control {
	return &richTextControl{textControl{field: field, multiline: true}}
}

func (c *richTextControl) ProcessInput(raw string) []error {
	cleaned := sanitize.RichText(raw)
	if errs := checkText(c.field, sanitize.StripTags(cleaned)); len(errs) > 0 {
		return errs
	}
	c.value = cleaned
	return nil
}

func (c *richTextControl) InitData() map[string]string {
	data := map[string]string{}
	if toolbar := c.field.ConfigValue("toolbar"); toolbar != "" {
		data["toolbar"] = toolbar
	}
	if format := c.field.ConfigValue("contentformat"); format != "" {
		data["format"] = format
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

type numberControl struct {
	field    model.Field
	value    any
	original any
	float    bool
}

// NewInteger builds an integer control. Blank input clears the value.
func NewInteger(field model.Field) Control {
	return &numberControl{field: field, value: "", original: ""}
}

// NewFloat builds a floating point control. Blank input clears the value.
func NewFloat(field model.Field) Control {
	return &numberControl{field: field, value: "", original: "", float: true}
}

func (c *numberControl) SetValue(value any) {
	if value == nil {
		value = ""
	}
	c.value = value
	c.original = value
}

func (c *numberControl) Value() any { return c.value }

func (c *numberControl) ProcessInput(raw string) []error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if c.field.ConfigValue("required") == "true" {
			return []error{errors.New("is required")}
		}
		c.value = ""
		return nil
	}

	var parsed float64
	var out any
	if c.float {
		v, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return []error{errors.New("must be a number")}
		}
		parsed, out = v, v
	} else {
		v, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return []error{errors.New("must be a whole number")}
		}
		parsed, out = float64(v), v
	}

	var errs []error
	if lower := c.field.ConfigValue("min"); lower != "" {
		if bound, err := strconv.ParseFloat(lower, 64); err == nil && parsed < bound {
			errs = append(errs, fmt.Errorf("must be at least %s", lower))
		}
	}
	if upper := c.field.ConfigValue("max"); upper != "" {
		if bound, err := strconv.ParseFloat(upper, 64); err == nil && parsed > bound {
			errs = append(errs, fmt.Errorf("must be at most %s", upper))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	c.value = out
	return nil
}

func (c *numberControl) Changed() bool {
	return stringify(c.value) != stringify(c.original)
}

type checkboxControl struct {
	value    bool
	original bool
}

// NewCheckbox builds a boolean control.
func NewCheckbox(model.Field) Control {
	return &checkboxControl{}
}

func (c *checkboxControl) SetValue(value any) {
	c.value = truthy(stringify(value))
	c.original = c.value
}

func (c *checkboxControl) Value() any { return c.value }

func (c *checkboxControl) ProcessInput(raw string) []error {
	c.value = truthy(raw)
	return nil
}

func (c *checkboxControl) Changed() bool { return c.value != c.original }

type jsonControl struct {
	field    model.Field
	value    map[string]any
	original map[string]any
}

// NewJSON builds a control for structured object values. Its blank value is
// an empty object, so the classifier never offers it inline.
func NewJSON(field model.Field) Control {
	return &jsonControl{field: field, value: map[string]any{}, original: map[string]any{}}
}

func (c *jsonControl) SetValue(value any) {
	c.value = map[string]any{}
	switch v := value.(type) {
	case map[string]any:
		c.value = v
	case string:
		if strings.TrimSpace(v) != "" {
			_ = json.Unmarshal([]byte(v), &c.value)
		}
	}
	c.original = c.value
}

func (c *jsonControl) Value() any { return c.value }

func (c *jsonControl) ProcessInput(raw string) []error {
	out := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return []error{errors.New("must be a JSON object")}
		}
	}
	c.value = out
	return nil
}

func (c *jsonControl) Changed() bool { return !reflect.DeepEqual(c.value, c.original) }

func checkText(field model.Field, value string) []error {
	var errs []error
	if field.ConfigValue("required") == "true" && strings.TrimSpace(value) == "" {
		errs = append(errs, errors.New("is required"))
	}
	if raw := field.ConfigValue("maxlength"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && utf8.RuneCountInString(value) > limit {
			errs = append(errs, fmt.Errorf("must be at most %d characters", limit))
		}
	}
	return errs
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes", "checked":
		return true
	default:
		return false
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case model.LanguageValues:
		return v.LanguageValue(0)
	default:
		return fmt.Sprint(v)
	}
}
