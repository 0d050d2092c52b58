package cff

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/willynilly/action-update-cff-authors/pkg/errors"
)

// requiredKeys are the top-level fields a minimal valid CFF document carries.
var requiredKeys = []string{"cff-version", "message", "title", "authors"}

// Validate performs structural validation of the document: required
// top-level keys, author shape, and ORCID format. It returns the first
// problem found as a ValidationError.
func (d *Document) Validate() error {
	present := map[string]bool{}
	for _, item := range d.root {
		if key, ok := item.Key.(string); ok {
			present[key] = true
		}
	}
	// Appended authors exist even when the source document had no authors key.
	if len(d.Authors) > 0 {
		present[authorsKey] = true
	}

	for _, key := range requiredKeys {
		if !present[key] {
			return errors.NewValidationError(key, nil, "required field is missing")
		}
	}

	if len(d.Authors) == 0 {
		return errors.NewValidationError(authorsKey, nil, "author list is empty")
	}

	for i, author := range d.Authors {
		if err := validateAuthor(i, author); err != nil {
			return err
		}
	}

	return nil
}

func validateAuthor(index int, author AuthorRecord) error {
	field := fmt.Sprintf("authors[%d]", index)

	if author.IsPerson() && author.Name != "" {
		return errors.NewValidationError(field, nil, "record mixes person names with an entity name")
	}
	if !author.IsPerson() && author.Name == "" {
		return errors.NewValidationError(field, nil, "record has neither person names nor an entity name")
	}
	if author.ORCID != "" && !author.ORCIDValid() {
		return errors.NewValidationError(field+".orcid", author.ORCID, "identifier is not of the form https://orcid.org/XXXX-XXXX-XXXX-XXXX")
	}
	return nil
}

// equalValue compares two YAML scalar or composite values for semantic
// equality, used by tests and the round-trip property check.
func equalValue(a, b interface{}) bool {
	am, aok := a.(yaml.MapSlice)
	bm, bok := b.(yaml.MapSlice)
	if aok && bok {
		if len(am) != len(bm) {
			return false
		}
		for i := range am {
			if am[i].Key != bm[i].Key || !equalValue(am[i].Value, bm[i].Value) {
				return false
			}
		}
		return true
	}

	as, aok := a.([]interface{})
	bs, bok := b.([]interface{})
	if aok && bok {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !equalValue(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	return a == b
}

// Equivalent reports whether two documents carry the same field values in
// the same order, ignoring formatting differences.
func Equivalent(a, b *Document) bool {
	return equalValue(a.root, b.root) && len(a.Authors) == len(b.Authors)
}
