package reconcile

// Verdict is the accept/reject decision for the pull request under the
// missing-author policy.
type Verdict struct {
	Passed bool

	// Blocking lists the keys of the contributors causing failure, in the
	// engine's deterministic ordering. Empty when Passed.
	Blocking []string
}

// Verdict applies the missing-author policy to the run's outcome. With the
// policy disabled every run passes. With it enabled, only genuinely
// unmatched contributors block: a contributor whose record could be
// synthesized automatically is an addition, not a gap in evidence.
func (r *Result) Verdict(missingAuthorInvalidates bool) Verdict {
	if !missingAuthorInvalidates || len(r.Unmatched) == 0 {
		return Verdict{Passed: true}
	}

	blocking := make([]string, 0, len(r.Unmatched))
	for _, u := range r.Unmatched {
		blocking = append(blocking, u.Key)
	}
	return Verdict{Passed: false, Blocking: blocking}
}
