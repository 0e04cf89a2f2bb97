package savehandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/save"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

func NewHandler(fns ...OptionFn) http.Handler {
	opts := NewOptions(fns...)
	return HandlerWithOptions(opts)
}

// HandlerWithOptions builds a net/http handler from a pre-constructed Options value.
// Callers are expected to pass an Options value produced by NewOptions (or equivalent)
// so defaults/clamps are applied.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}
		if opts.Saver == nil {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, opts.MaxBodyBytes)
		payload, err := Decode(r, opts)
		if err != nil {
			writeGuardError(w, StatusError{Code: http.StatusBadRequest, Err: err})
			return
		}

		req := save.Request{
			Entries:  payload.Entries,
			Language: payload.Language,
			Token:    payload.Token,
			Actor:    model.Guest,
		}
		if opts.Actor != nil {
			if actor := opts.Actor(r); actor != nil {
				req.Actor = actor
			}
		}
		if opts.Session != nil {
			req.Session = opts.Session(r)
		}
		if opts.Record != nil && payload.ID > 0 {
			req.Record = opts.Record(r, payload.ID)
		}

		result := opts.Saver.Save(r.Context(), req)
		WriteResult(w, result)
	})
}

// WriteResult writes result as JSON with status 200.
func WriteResult(w http.ResponseWriter, result save.Result) {
	if result.Formatted == nil {
		result.Formatted = map[string]string{}
	}
	if result.Unformatted == nil {
		result.Unformatted = map[string]string{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(result)
}

// Payload is a decoded save request.
type Payload struct {
	ID       int64
	Language int
	Token    string
	Entries  []save.Entry
}

// Decode reads a save request from a JSON body or form values.
func Decode(r *http.Request, opts Options) (Payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var (
		payload Payload
		err     error
	)
	if mediaType == "application/json" {
		payload, err = decodeJSON(r.Body, opts)
	} else {
		payload, err = decodeForm(r, opts)
	}
	if err != nil {
		return Payload{}, err
	}
	if token := strings.TrimSpace(r.Header.Get(opts.CSRFHeader)); token != "" {
		payload.Token = token
	}
	return payload, nil
}

func decodeForm(r *http.Request, opts Options) (Payload, error) {
	if err := r.ParseForm(); err != nil {
		return Payload{}, fmt.Errorf("savehandler: parse form: %w", err)
	}
	payload := Payload{Token: r.PostForm.Get(opts.CSRFField)}
	var err error
	if payload.ID, err = parseInt(r.PostForm.Get(opts.IDParam)); err != nil {
		return Payload{}, fmt.Errorf("savehandler: %s: %w", opts.IDParam, err)
	}
	language, err := parseInt(r.PostForm.Get(opts.LanguageParam))
	if err != nil {
		return Payload{}, fmt.Errorf("savehandler: %s: %w", opts.LanguageParam, err)
	}
	payload.Language = int(language)

	prefix := opts.FieldsParam + "["
	fields := make(map[string]string)
	for name, values := range r.PostForm {
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "]") || len(values) == 0 {
			continue
		}
		// The last value wins so a checkbox can follow its hidden fallback.
		fields[name[len(prefix):len(name)-1]] = values[len(values)-1]
	}
	payload.Entries = save.EntriesFromMap(fields)
	return payload, nil
}

func decodeJSON(body io.Reader, opts Options) (Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return Payload{}, fmt.Errorf("savehandler: decode body: %w", err)
	}

	payload := Payload{}
	var err error
	if payload.ID, err = jsonInt(raw[opts.IDParam]); err != nil {
		return Payload{}, fmt.Errorf("savehandler: %s: %w", opts.IDParam, err)
	}
	language, err := jsonInt(raw[opts.LanguageParam])
	if err != nil {
		return Payload{}, fmt.Errorf("savehandler: %s: %w", opts.LanguageParam, err)
	}
	payload.Language = int(language)
	if token, ok := raw[opts.CSRFField]; ok {
		_ = json.Unmarshal(token, &payload.Token)
	}

	if fields, ok := raw[opts.FieldsParam]; ok && !bytes.Equal(bytes.TrimSpace(fields), []byte("null")) {
		entries, err := save.DecodeEntries(bytes.NewReader(fields))
		if err != nil {
			return Payload{}, err
		}
		payload.Entries = entries
	}
	return payload, nil
}

func jsonInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
		return parseInt(text)
	}
	return parseInt(string(raw))
}

func parseInt(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if value < 0 {
		return 0, errors.New("must not be negative")
	}
	return value, nil
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}
