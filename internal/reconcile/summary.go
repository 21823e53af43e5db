package reconcile

// Summary counts rows by outcome.
type Summary struct {
	Employees      int `json:"employees"`
	Paired         int `json:"paired"`
	OnlyA          int `json:"only_a"`
	OnlyB          int `json:"only_b"`
	Clean          int `json:"clean"`
	BlockingIssues int `json:"blocking_issues"`
	Mismatches     int `json:"mismatches"`
}

// Summarize tallies a reconciliation result. A row is clean when every
// field found on both sides matches and no blocking field is missing.
func Summarize(rows []Row) Summary {
	var s Summary
	for _, r := range rows {
		s.Employees++
		hasA := r.ExtractionA.HasDocument()
		hasB := r.ExtractionB.HasDocument()
		switch {
		case hasA && hasB:
			s.Paired++
		case hasA:
			s.OnlyA++
		case hasB:
			s.OnlyB++
		}

		mismatch := false
		for _, c := range r.Comparison {
			if c.Status == StatusMismatch {
				s.Mismatches++
				mismatch = true
			}
		}
		blocking := r.BlockingIssue()
		if blocking {
			s.BlockingIssues++
		}
		if !blocking && !mismatch && hasA && hasB {
			s.Clean++
		}
	}
	return s
}
