// Package orcid queries the public ORCID registry: extracting identifiers
// from free text, validating that an identifier resolves to a record, and
// searching for a researcher by name and email. Every query produces a
// Lookup log entry regardless of outcome; failures are transient by
// contract and never abort a reconciliation run.
package orcid

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/willynilly/action-update-cff-authors/internal/transport"
	"github.com/willynilly/action-update-cff-authors/pkg/errors"
	"github.com/willynilly/action-update-cff-authors/pkg/identity"
)

// DefaultBaseURL is the public ORCID API.
const DefaultBaseURL = "https://pub.orcid.org/v3.0"

// URLPrefix is the canonical identifier prefix used in CFF files.
const URLPrefix = "https://orcid.org/"

// Outcome classifies the result of a registry lookup.
type Outcome string

// Lookup outcomes.
const (
	OutcomeSuccess   Outcome = "success"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeNotFound  Outcome = "not-found"
	OutcomeError     Outcome = "error"
)

// Lookup is the audit record of one registry query.
type Lookup struct {
	Query   string  // the name/email the query was built from
	Outcome Outcome
	ID      string // bare identifier (no URL prefix) when Outcome is success
	Detail  string // record name on success, mismatch or error detail otherwise
}

var (
	idPattern  = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[\dX]$`)
	urlPattern = regexp.MustCompile(`https?://orcid\.org/(\d{4}-\d{4}-\d{4}-\d{3}[\dX])`)
)

// ExtractID pulls a bare ORCID identifier out of free text such as a profile
// bio. Returns "" when none is present.
func ExtractID(text string) string {
	match := urlPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

// ValidFormat reports whether id has the bare XXXX-XXXX-XXXX-XXXX form.
func ValidFormat(id string) bool {
	return idPattern.MatchString(id)
}

// Client talks to the ORCID public API.
type Client struct {
	baseURL   string
	transport *transport.Client
	retries   uint64
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTransport replaces the underlying transport client.
func WithTransport(t *transport.Client) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithRetries sets how many times transient failures are retried.
func WithRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = uint64(retries)
		}
	}
}

// New creates an ORCID public API client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		transport: transport.New(&transport.NoAuth{}, transport.WithTimeout(10*time.Second)),
		retries:   2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks that a bare identifier has the canonical form and resolves
// to a record in the registry.
func (c *Client) Validate(ctx context.Context, id string) (bool, error) {
	if !ValidFormat(id) {
		return false, nil
	}

	var status int
	err := c.withRetry(ctx, func() error {
		resp, err := c.transport.Get(ctx, c.baseURL+"/"+id, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close() //nolint:errcheck
		status = resp.StatusCode
		if status >= 500 || status == 429 {
			return errors.NewAPIError("orcid", status, "registry unavailable")
		}
		return nil
	})
	if err != nil {
		return false, errors.NewLookupError("orcid", id, err)
	}
	return status == 200, nil
}

// searchResponse is the shape of /search results.
type searchResponse struct {
	Result []struct {
		Identifier struct {
			Path string `json:"path"`
		} `json:"orcid-identifier"`
	} `json:"result"`
}

// personalDetails is the shape of /{id}/personal-details.
type personalDetails struct {
	CreditName struct {
		Value string `json:"value"`
	} `json:"credit-name"`
	GivenNames struct {
		Value string `json:"value"`
	} `json:"given-names"`
	FamilyName struct {
		Value string `json:"value"`
	} `json:"family-name"`
	OtherNames struct {
		OtherName []struct {
			Content string `json:"content"`
		} `json:"other-name"`
	} `json:"other-names"`
}

// Resolve makes the client usable as the matcher's registry resolver.
func (c *Client) Resolve(ctx context.Context, name, email string) Lookup {
	return c.Search(ctx, name, email)
}

// Search looks up a researcher by full name and optional email. The top hit
// is accepted only when one of the record's names equals the queried name
// after folding; a hit with a different name is reported as ambiguous and
// never attached. All failure modes degrade to the Lookup's outcome.
func (c *Client) Search(ctx context.Context, fullName, email string) Lookup {
	lookup := Lookup{Query: fullName}
	if email != "" && fullName == "" {
		lookup.Query = email
	}

	query := buildQuery(fullName, email)
	if query == "" {
		lookup.Outcome = OutcomeNotFound
		lookup.Detail = "no usable name or email to search with"
		return lookup
	}

	var search searchResponse
	err := c.withRetry(ctx, func() error {
		resp, err := c.transport.Get(ctx, c.baseURL+"/search/?q="+url.QueryEscape(query),
			map[string]string{"Accept": "application/vnd.orcid+json"})
		if err != nil {
			return err
		}
		return retryable(transport.DecodeResponse("orcid", resp, &search))
	})
	if err != nil {
		lookup.Outcome = OutcomeError
		lookup.Detail = err.Error()
		return lookup
	}

	if len(search.Result) == 0 {
		lookup.Outcome = OutcomeNotFound
		lookup.Detail = "no registry records matched"
		return lookup
	}

	id := search.Result[0].Identifier.Path

	var details personalDetails
	err = c.withRetry(ctx, func() error {
		resp, err := c.transport.Get(ctx, c.baseURL+"/"+id+"/personal-details",
			map[string]string{"Accept": "application/vnd.orcid+json"})
		if err != nil {
			return err
		}
		return retryable(transport.DecodeResponse("orcid", resp, &details))
	})
	if err != nil {
		lookup.Outcome = OutcomeError
		lookup.Detail = err.Error()
		return lookup
	}

	recordName, matched := matchName(fullName, details)
	if !matched {
		lookup.Outcome = OutcomeAmbiguous
		lookup.ID = ""
		lookup.Detail = fmt.Sprintf("registry record %s found but its name %q does not match", id, recordName)
		return lookup
	}

	lookup.Outcome = OutcomeSuccess
	lookup.ID = id
	lookup.Detail = recordName
	return lookup
}

// buildQuery assembles the registry search expression: given/family name
// terms, optionally OR'd with an exact email clause.
func buildQuery(fullName, email string) string {
	var query string
	name := strings.TrimSpace(fullName)
	if name != "" {
		given, family, _ := strings.Cut(name, " ")
		query = "given-names:" + given
		if family != "" {
			query += " AND family-name:" + family
		}
	}
	if email != "" {
		if query != "" {
			query += fmt.Sprintf(" OR email:%q", email)
		} else {
			query = fmt.Sprintf("email:%q", email)
		}
	}
	return query
}

// matchName checks the queried name against the record's credit name, other
// names, and combined given+family name, after folding.
func matchName(fullName string, details personalDetails) (recordName string, matched bool) {
	combined := strings.TrimSpace(details.GivenNames.Value + " " + details.FamilyName.Value)
	recordName = details.CreditName.Value
	if recordName == "" {
		recordName = combined
	}

	target := identity.Fold(fullName)
	if target == "" {
		return recordName, false
	}

	candidates := []string{details.CreditName.Value, combined}
	for _, other := range details.OtherNames.OtherName {
		candidates = append(candidates, other.Content)
	}

	for _, candidate := range candidates {
		if candidate != "" && identity.Fold(candidate) == target {
			return recordName, true
		}
	}
	return recordName, false
}

// withRetry runs op with bounded exponential backoff for transient failures.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.retries), ctx)
	return backoff.Retry(op, policy)
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 15 * time.Second
	return b
}

// retryable keeps rate-limit and server errors retryable and marks every
// other API failure permanent so backoff stops immediately.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsRateLimited(err) || errors.IsServiceUnavailable(err) {
		return err
	}
	return backoff.Permanent(err)
}
