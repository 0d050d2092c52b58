package cff

import (
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// AuthorRecord is one entry in the citation document's author list. A record
// is either a person (given/family names) or an entity (single name field).
// Records loaded from an existing document keep their raw YAML node so that
// unknown fields and field order survive a save unchanged; synthesized
// records have no raw node and serialize from their typed fields.
type AuthorRecord struct {
	GivenNames  string
	FamilyNames string
	Name        string // entity name, set instead of given/family names
	ORCID       string // https://orcid.org/XXXX-XXXX-XXXX-XXXX
	Alias       string
	Email       string
	Affiliation string

	raw yaml.MapSlice // original node for loaded records, nil for synthesized ones
}

// orcidURLPattern matches the canonical ORCID URL form used in CFF files.
var orcidURLPattern = regexp.MustCompile(`^https://orcid\.org/\d{4}-\d{4}-\d{4}-(\d{3}[\dX])$`)

// IsPerson reports whether the record describes a person rather than an entity.
func (r AuthorRecord) IsPerson() bool {
	return r.GivenNames != "" || r.FamilyNames != ""
}

// FullName returns the record's display name: given and family names joined
// for a person, or the entity name.
func (r AuthorRecord) FullName() string {
	if r.IsPerson() {
		return strings.TrimSpace(strings.TrimSpace(r.GivenNames) + " " + strings.TrimSpace(r.FamilyNames))
	}
	return strings.TrimSpace(r.Name)
}

// ORCIDValid reports whether the record's ORCID has the canonical URL form.
func (r AuthorRecord) ORCIDValid() bool {
	return orcidURLPattern.MatchString(r.ORCID)
}

// node returns the YAML node to serialize for this record. Loaded records
// return their original node verbatim.
func (r AuthorRecord) node() yaml.MapSlice {
	if r.raw != nil {
		return r.raw
	}

	var node yaml.MapSlice
	add := func(key, value string) {
		if value != "" {
			node = append(node, yaml.MapItem{Key: key, Value: value})
		}
	}

	add("given-names", r.GivenNames)
	add("family-names", r.FamilyNames)
	add("name", r.Name)
	add("alias", r.Alias)
	add("email", r.Email)
	add("affiliation", r.Affiliation)
	add("orcid", r.ORCID)
	return node
}

// authorFromNode builds an AuthorRecord from a loaded YAML node, keeping the
// node for verbatim serialization.
func authorFromNode(node yaml.MapSlice) AuthorRecord {
	record := AuthorRecord{raw: node}
	for _, item := range node {
		key, ok := item.Key.(string)
		if !ok {
			continue
		}
		value, ok := item.Value.(string)
		if !ok {
			continue
		}
		switch key {
		case "given-names":
			record.GivenNames = value
		case "family-names":
			record.FamilyNames = value
		case "name":
			record.Name = value
		case "orcid":
			record.ORCID = value
		case "alias":
			record.Alias = value
		case "email":
			record.Email = value
		case "affiliation":
			record.Affiliation = value
		}
	}
	return record
}
