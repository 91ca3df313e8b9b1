// Package lang defines the source-language plugin boundary and routes
// incoming analysis documents to the plugin that claims them. Language
// plugins parse and extract; everything downstream of the canonical report
// is language-agnostic.
package lang

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/4tyone/pyrethrum/internal/model"
)

// Document is one analysis input file, decoded just far enough to route it:
// either a serialized syntax tree (Tree) or a pre-extracted analysis report
// (Signatures/Matches/Unhandled present).
type Document struct {
	Language   string          `json:"language,omitempty"`
	File       string          `json:"file,omitempty"`
	Tree       map[string]any  `json:"tree,omitempty"`
	Signatures json.RawMessage `json:"signatures,omitempty"`
	Matches    json.RawMessage `json:"matches,omitempty"`
	Unhandled  json.RawMessage `json:"unhandled_calls,omitempty"`

	raw []byte
}

// ParseDocument decodes the routing envelope of an analysis document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "lang: decode document envelope")
	}
	doc.raw = data
	return &doc, nil
}

// HasTree reports whether the document carries a raw syntax tree and no
// pre-extracted fields, i.e. whether it should take the plugin parse path.
func (d *Document) HasTree() bool {
	return d.Tree != nil && d.Signatures == nil && d.Matches == nil && d.Unhandled == nil
}

// Raw returns the original document bytes.
func (d *Document) Raw() []byte { return d.raw }

// Language is implemented by one source-language plugin: a predicate
// deciding whether a document belongs to it, a parse function producing the
// canonical report, and an accessor for the originating file path.
type Language interface {
	Name() string
	Detect(doc *Document) bool
	Parse(doc *Document) (*model.Report, error)
	FilePath(doc *Document) string
}

// Registry holds registered language plugins in registration order.
type Registry struct {
	langs []Language
}

// NewRegistry creates a registry over the given plugins.
func NewRegistry(langs ...Language) *Registry {
	return &Registry{langs: langs}
}

// Register appends a plugin. Later registrations are tried after earlier
// ones.
func (r *Registry) Register(l Language) {
	r.langs = append(r.langs, l)
}

// Route produces the canonical report for a document: the first plugin that
// detects a raw-tree document parses it; anything else falls back to the
// legacy pre-extracted decoder.
func (r *Registry) Route(doc *Document) (*model.Report, error) {
	if doc.HasTree() {
		for _, l := range r.langs {
			if l.Detect(doc) {
				report, err := l.Parse(doc)
				if err != nil {
					return nil, eris.Wrapf(err, "lang: %s parse", l.Name())
				}
				return report, nil
			}
		}
		return nil, eris.Errorf("lang: no plugin accepts document %s", doc.File)
	}
	return DecodeLegacy(doc)
}

// DecodeLegacy decodes a pre-extracted document: the document body is
// already the canonical wire schema, so this is a straight field-by-field
// decode with schema defaults applied.
func DecodeLegacy(doc *Document) (*model.Report, error) {
	report, err := model.DecodeReport(doc.raw)
	if err != nil {
		return nil, eris.Wrap(err, "lang: decode pre-extracted report")
	}
	if report.Language == "unknown" && doc.Language != "" {
		report.Language = doc.Language
	}
	return report, nil
}
