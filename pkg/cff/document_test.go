package cff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willynilly/action-update-cff-authors/pkg/errors"
)

const sampleDoc = `cff-version: 1.2.0
message: If you use this software, please cite it.
title: Example Project
keywords:
  - reproducibility
  - citation
authors:
  - given-names: Ada
    family-names: Lovelace
    orcid: https://orcid.org/0000-0001-2345-6789
    note: founding author
  - name: Example Lab
    email: lab@example.org
version: 1.4.0
`

func TestLoad(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, doc.Authors, 2)

	ada := doc.Authors[0]
	assert.Equal(t, "Ada", ada.GivenNames)
	assert.Equal(t, "Lovelace", ada.FamilyNames)
	assert.Equal(t, "https://orcid.org/0000-0001-2345-6789", ada.ORCID)
	assert.True(t, ada.IsPerson())
	assert.Equal(t, "Ada Lovelace", ada.FullName())

	lab := doc.Authors[1]
	assert.False(t, lab.IsPerson())
	assert.Equal(t, "Example Lab", lab.FullName())
	assert.Equal(t, "lab@example.org", lab.Email)
}

func TestLoadErrors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load([]byte("authors: [\n"))
		require.Error(t, err)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("authors not a sequence", func(t *testing.T) {
		_, err := Load([]byte("authors: nope\n"))
		require.Error(t, err)
		var parseErr *errors.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("author entry not a mapping", func(t *testing.T) {
		_, err := Load([]byte("authors:\n  - just-a-string\n"))
		require.Error(t, err)
	})

	t.Run("null authors treated as empty", func(t *testing.T) {
		doc, err := Load([]byte("title: x\nauthors:\n"))
		require.NoError(t, err)
		assert.Empty(t, doc.Authors)
	})
}

func TestRoundTrip(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	require.NoError(t, err)

	out, err := doc.Save()
	require.NoError(t, err)

	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.True(t, Equivalent(doc, reloaded), "load/save must preserve field values and order")

	// Unknown fields survive verbatim.
	assert.Contains(t, string(out), "note: founding author")
	assert.Contains(t, string(out), "reproducibility")

	// Top-level order is unchanged: version stays after authors.
	text := string(out)
	assert.Less(t, strings.Index(text, "authors:"), strings.Index(text, "version:"))
	assert.Less(t, strings.Index(text, "cff-version:"), strings.Index(text, "message:"))
}

func TestAppend(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	require.NoError(t, err)

	doc.Append(AuthorRecord{
		GivenNames:  "Grace",
		FamilyNames: "Hopper",
		Alias:       "ghopper",
		Email:       "grace@example.org",
	})

	out, err := doc.Save()
	require.NoError(t, err)

	reloaded, err := Load(out)
	require.NoError(t, err)
	require.Len(t, reloaded.Authors, 3)

	// Existing records are untouched and keep their position.
	assert.Equal(t, "Ada", reloaded.Authors[0].GivenNames)
	assert.Equal(t, "Example Lab", reloaded.Authors[1].Name)

	appended := reloaded.Authors[2]
	assert.Equal(t, "Grace", appended.GivenNames)
	assert.Equal(t, "Hopper", appended.FamilyNames)
	assert.Equal(t, "ghopper", appended.Alias)
}

func TestAppendToDocumentWithoutAuthors(t *testing.T) {
	doc, err := Load([]byte("title: No Authors Yet\n"))
	require.NoError(t, err)
	assert.Empty(t, doc.Authors)

	doc.Append(AuthorRecord{Name: "Example Lab"})
	out, err := doc.Save()
	require.NoError(t, err)

	reloaded, err := Load(out)
	require.NoError(t, err)
	require.Len(t, reloaded.Authors, 1)
	assert.Equal(t, "Example Lab", reloaded.Authors[0].Name)
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		doc, err := Load([]byte(sampleDoc))
		require.NoError(t, err)
		assert.NoError(t, doc.Validate())
	})

	t.Run("missing required key", func(t *testing.T) {
		doc, err := Load([]byte("title: x\nauthors:\n  - name: Lab\n"))
		require.NoError(t, err)
		err = doc.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("bad orcid", func(t *testing.T) {
		doc, err := Load([]byte(sampleDoc))
		require.NoError(t, err)
		doc.Append(AuthorRecord{Name: "Lab", ORCID: "0000-0001-2345-6789"})
		err = doc.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "orcid")
	})

	t.Run("record without any name", func(t *testing.T) {
		doc, err := Load([]byte(sampleDoc))
		require.NoError(t, err)
		doc.Append(AuthorRecord{Email: "nameless@example.org"})
		assert.Error(t, doc.Validate())
	})
}

func TestORCIDValid(t *testing.T) {
	assert.True(t, AuthorRecord{ORCID: "https://orcid.org/0000-0001-2345-678X"}.ORCIDValid())
	assert.False(t, AuthorRecord{ORCID: "https://orcid.org/0000"}.ORCIDValid())
	assert.False(t, AuthorRecord{ORCID: "0000-0001-2345-6789"}.ORCIDValid())
	assert.False(t, AuthorRecord{}.ORCIDValid())
}
