package editor

import (
	"fmt"

	"github.com/goliatone/go-frontedit/pkg/model"
)

// Pass carries the state of one render pass: the inline sequence counter,
// the modal id registry and the active language. Create a new Pass for every
// document; a Pass must not be shared between requests.
type Pass struct {
	seq      int
	modals   *ModalRegistry
	language int
	locale   string
}

// PassOption configures a Pass.
type PassOption func(*Pass)

// WithLanguage marks localization as active for the pass. locale is the
// BCP 47 tag rendered in lang attributes.
func WithLanguage(id int, locale string) PassOption {
	return func(p *Pass) {
		p.language = id
		p.locale = locale
	}
}

// NewPass starts a render pass.
func NewPass(opts ...PassOption) *Pass {
	p := &Pass{modals: NewModalRegistry()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Next returns the next inline sequence number, starting at 1.
func (p *Pass) Next() int {
	p.seq++
	return p.seq
}

// Modals returns the pass-scoped modal id registry.
func (p *Pass) Modals() *ModalRegistry { return p.modals }

// Language returns the active language id and locale.
func (p *Pass) Language() (int, string) { return p.language, p.locale }

// Regions reports how many editor regions the pass has issued.
func (p *Pass) Regions() int { return p.seq + p.modals.Len() }

// Localized reports whether a language was selected for the pass.
func (p *Pass) Localized() bool { return p.locale != "" }

// ModalRegistry issues modal ids unique within one render pass. Repeated
// record and field combinations get _1, _2, ... suffixes.
type ModalRegistry struct {
	counts map[string]int
	issued map[string]struct{}
}

// NewModalRegistry returns an empty registry.
func NewModalRegistry() *ModalRegistry {
	return &ModalRegistry{
		counts: make(map[string]int),
		issued: make(map[string]struct{}),
	}
}

// Issue returns a new id for the record and fields.
func (r *ModalRegistry) Issue(recordID int64, fields []model.Field) string {
	base := fmt.Sprintf("fe-modal-%d-%s", recordID, model.FieldIDs(fields, "_"))
	for {
		n := r.counts[base]
		r.counts[base] = n + 1
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		if _, taken := r.issued[id]; !taken {
			r.issued[id] = struct{}{}
			return id
		}
	}
}

// Len reports how many ids were issued.
func (r *ModalRegistry) Len() int { return len(r.issued) }
