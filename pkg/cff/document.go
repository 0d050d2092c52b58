// Package cff models a CITATION.cff document as a typed author list plus an
// opaque ordered remainder. Only the authors sequence is interpreted; every
// other top-level field round-trips through load and save with its value and
// position untouched. Appending authors never reorders or mutates existing
// records.
package cff

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/willynilly/action-update-cff-authors/pkg/errors"
)

const authorsKey = "authors"

// Document is a loaded citation file: the parsed author list and the ordered
// key-value tree of everything else.
type Document struct {
	Authors []AuthorRecord

	root yaml.MapSlice // full top-level document in original order
	path string        // source path when loaded from a file, informational
}

// Load parses citation document bytes. A document that is not valid YAML,
// not a mapping at the top level, or whose authors entry is not a sequence
// of mappings is a fatal parse error; there is no partial-document mode.
func Load(data []byte) (*Document, error) {
	return load(data, "")
}

// LoadFile reads and parses the citation document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return load(data, path)
}

func load(data []byte, path string) (*Document, error) {
	var root yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(data, &root, yaml.UseOrderedMap()); err != nil {
		return nil, errors.NewParseError("yaml", path, err.Error(), err)
	}

	doc := &Document{root: root, path: path}

	for _, item := range root {
		key, ok := item.Key.(string)
		if !ok || key != authorsKey {
			continue
		}

		list, ok := item.Value.([]interface{})
		if !ok {
			// A present-but-null authors key is treated as an empty list.
			if item.Value == nil {
				break
			}
			return nil, errors.NewParseError("yaml", path, "authors is not a sequence", nil)
		}

		for _, entry := range list {
			node, ok := entry.(yaml.MapSlice)
			if !ok {
				return nil, errors.NewParseError("yaml", path, "author entry is not a mapping", nil)
			}
			doc.Authors = append(doc.Authors, authorFromNode(node))
		}
		break
	}

	return doc, nil
}

// Path returns the file path the document was loaded from, if any.
func (d *Document) Path() string {
	return d.path
}

// Append adds synthesized author records to the end of the author list.
// Existing records are never touched.
func (d *Document) Append(records ...AuthorRecord) {
	d.Authors = append(d.Authors, records...)
}

// Save serializes the document back to YAML bytes. Non-author fields are
// emitted from the original ordered tree; loaded author records serialize
// from their original nodes, appended records from their typed fields.
// Formatting may differ from the input but values and ordering do not.
func (d *Document) Save() ([]byte, error) {
	authors := make([]interface{}, 0, len(d.Authors))
	for _, record := range d.Authors {
		authors = append(authors, record.node())
	}

	out := make(yaml.MapSlice, 0, len(d.root)+1)
	replaced := false
	for _, item := range d.root {
		if key, ok := item.Key.(string); ok && key == authorsKey {
			out = append(out, yaml.MapItem{Key: authorsKey, Value: authors})
			replaced = true
			continue
		}
		out = append(out, item)
	}
	if !replaced {
		out = append(out, yaml.MapItem{Key: authorsKey, Value: authors})
	}

	data, err := yaml.MarshalWithOptions(out,
		yaml.Indent(2),
		yaml.IndentSequence(true),
	)
	if err != nil {
		return nil, errors.WrapParse("yaml", d.path, err)
	}
	return data, nil
}

// SaveFile serializes the document and writes it to path.
func (d *Document) SaveFile(path string) error {
	data, err := d.Save()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
