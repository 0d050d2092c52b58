// Package report renders a reconciliation result for its two consumers: the
// GitHub Actions output file read by downstream workflow steps, and the
// markdown comment posted back to the pull request.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/willynilly/action-update-cff-authors/internal/orcid"
	"github.com/willynilly/action-update-cff-authors/pkg/reconcile"
)

// Marker identifies the sticky pull-request comment so re-runs update the
// same comment instead of stacking new ones.
const Marker = "<!-- contributor-check-comment -->"

// WriteOutputs writes the run's results in the GitHub Actions output-file
// format: one `key=value` line for single-line values and heredoc blocks for
// multi-line ones.
func WriteOutputs(w io.Writer, result *reconcile.Result) error {
	if _, err := fmt.Fprintf(w, "new_users=%s\n", strings.Join(result.NewAuthorKeys(), ",")); err != nil {
		return err
	}

	if err := writeBlock(w, "updated_cff", string(result.UpdatedCFF)); err != nil {
		return err
	}

	if len(result.Warnings) > 0 {
		if err := writeBlock(w, "warnings", strings.Join(warningLines(result), "\n")); err != nil {
			return err
		}
	}

	if len(result.Lookups) > 0 {
		if err := writeBlock(w, "orcid_logs", strings.Join(lookupLines(result), "\n")); err != nil {
			return err
		}
	}

	return nil
}

func writeBlock(w io.Writer, key, value string) error {
	_, err := fmt.Fprintf(w, "%s<<EOF\n%s\nEOF\n", key, strings.TrimRight(value, "\n"))
	return err
}

// Comment builds the markdown body of the pull-request comment. cffPath
// names the citation file shown in the heading, commitSHA is truncated to
// the usual short form, and now stamps the footer.
func Comment(result *reconcile.Result, cffPath, commitSHA string, now time.Time) string {
	var b strings.Builder

	b.WriteString(Marker)
	b.WriteString("\n### New Authors Detected\n\n")

	b.WriteString("**New GitHub Users or Commit Authors:**\n")
	if len(result.NewAuthors) == 0 {
		b.WriteString("_None_\n")
	} else {
		for _, author := range result.NewAuthors {
			fmt.Fprintf(&b, "- %s (%s)\n", author.Key, strings.Join(author.Evidence, ", "))
		}
	}

	fmt.Fprintf(&b, "\n**Updated `%s` file:**\n```yaml\n%s\n```\n",
		cffPath, strings.TrimRight(string(result.UpdatedCFF), "\n"))

	if len(result.Unmatched) > 0 {
		b.WriteString("\n**Unresolved Contributors:**\n")
		for _, u := range result.Unmatched {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", u.Key, u.Reason, strings.Join(u.Evidence, ", "))
		}
	}

	if len(result.Warnings) > 0 {
		b.WriteString("\n**Warnings & Recommendations:**\n")
		for _, line := range warningLines(result) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	if len(result.Lookups) > 0 {
		b.WriteString("\n<details>\n<summary><strong>ORCID Match Details</strong></summary>\n\n")
		for _, line := range lookupLines(result) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("\n</details>\n")
	}

	if len(commitSHA) > 7 {
		commitSHA = commitSHA[:7]
	}
	fmt.Fprintf(&b, "\n_Last updated: %s UTC · Commit `%s`_\n",
		now.UTC().Format("2006-01-02 15:04"), commitSHA)

	return b.String()
}

func warningLines(result *reconcile.Result) []string {
	lines := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		lines = append(lines, "- "+w.String())
	}
	return lines
}

func lookupLines(result *reconcile.Result) []string {
	lines := make([]string, 0, len(result.Lookups))
	for _, l := range result.Lookups {
		lines = append(lines, lookupLine(l))
	}
	return lines
}

// lookupLine renders one registry lookup for the audit trail.
func lookupLine(l orcid.Lookup) string {
	switch l.Outcome {
	case orcid.OutcomeSuccess:
		return fmt.Sprintf("- `%s`: matched %s%s (%s)", l.Query, orcid.URLPrefix, l.ID, l.Detail)
	case orcid.OutcomeAmbiguous:
		return fmt.Sprintf("- `%s`: ambiguous, %s", l.Query, l.Detail)
	case orcid.OutcomeNotFound:
		return fmt.Sprintf("- `%s`: no match (%s)", l.Query, l.Detail)
	default:
		return fmt.Sprintf("- `%s`: lookup failed, %s", l.Query, l.Detail)
	}
}
