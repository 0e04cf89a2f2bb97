package savehandler

import (
	"context"
	"net/http"

	"github.com/goliatone/go-frontedit/pkg/model"
	"github.com/goliatone/go-frontedit/pkg/save"
)

// Saver runs a save batch.
type Saver interface {
	Save(ctx context.Context, req save.Request) save.Result
}

type GuardFunc func(r *http.Request) error

// ActorFunc returns the authenticated actor of a request.
type ActorFunc func(r *http.Request) model.Actor

// SessionFunc returns the session id owning the CSRF token.
type SessionFunc func(r *http.Request) string

// RecordFunc returns an already loaded record for id, or nil.
type RecordFunc func(r *http.Request, id int64) model.Record

const (
	defaultRoutePath    = "/frontedit/save"
	defaultFieldsParam  = "fields"
	defaultIDParam      = "id"
	defaultLangParam    = "language"
	defaultCSRFField    = "_csrf"
	defaultCSRFHeader   = "X-CSRF-Token"
	defaultMaxBodyBytes = 1 << 20
)

type Options struct {
	RoutePath     string
	FieldsParam   string
	IDParam       string
	LanguageParam string
	CSRFField     string
	CSRFHeader    string
	MaxBodyBytes  int64
	Guard         GuardFunc

	Saver   Saver
	Actor   ActorFunc
	Session SessionFunc
	Record  RecordFunc
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:     defaultRoutePath,
		FieldsParam:   defaultFieldsParam,
		IDParam:       defaultIDParam,
		LanguageParam: defaultLangParam,
		CSRFField:     defaultCSRFField,
		CSRFHeader:    defaultCSRFHeader,
		MaxBodyBytes:  defaultMaxBodyBytes,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = defaultRoutePath
	}
	if opts.FieldsParam == "" {
		opts.FieldsParam = defaultFieldsParam
	}
	if opts.IDParam == "" {
		opts.IDParam = defaultIDParam
	}
	if opts.LanguageParam == "" {
		opts.LanguageParam = defaultLangParam
	}
	if opts.CSRFField == "" {
		opts.CSRFField = defaultCSRFField
	}
	if opts.CSRFHeader == "" {
		opts.CSRFHeader = defaultCSRFHeader
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithFieldsParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.FieldsParam = name
	}
}

func WithCSRFField(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.CSRFField = name
	}
}

func WithMaxBodyBytes(limit int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxBodyBytes = limit
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithSaver(saver Saver) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Saver = saver
	}
}

func WithActor(fn ActorFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Actor = fn
	}
}

func WithSession(fn SessionFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Session = fn
	}
}

func WithRecord(fn RecordFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Record = fn
	}
}
