package pysyntax

import (
	"strings"

	"github.com/4tyone/pyrethrum/internal/lang"
	"github.com/4tyone/pyrethrum/internal/model"
)

// Python is the Python source-language plugin: it claims documents whose
// language tag or file extension is Python and runs decode + extract over
// their serialized syntax tree.
type Python struct{}

// NewPython returns the Python plugin.
func NewPython() *Python { return &Python{} }

func (*Python) Name() string { return "python" }

// Detect claims documents tagged python, documents for .py files, and
// untagged tree documents (Python is the default tree dialect).
func (*Python) Detect(doc *lang.Document) bool {
	switch doc.Language {
	case "python", "py":
		return true
	case "":
		return strings.HasSuffix(doc.File, ".py") || doc.Tree != nil
	default:
		return false
	}
}

// Parse decodes the document's tagged tree and extracts the canonical
// report from it.
func (p *Python) Parse(doc *lang.Document) (*model.Report, error) {
	mod, err := DecodeModule(doc.Tree, p.FilePath(doc))
	if err != nil {
		return nil, err
	}
	return Extract(mod), nil
}

// FilePath returns the originating file path recorded in the document.
func (*Python) FilePath(doc *lang.Document) string {
	return doc.File
}
