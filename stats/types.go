package stats

import "github.com/mpsync/core/diff"

// CountsFromResults tallies a diff result slice into DiffCounts, for
// collectors that want aggregate numbers rather than the full result set.
func CountsFromResults(results []diff.Result) DiffCounts {
	var c DiffCounts
	for _, r := range results {
		switch r.Status {
		case diff.Unchanged:
			c.Unchanged++
		case diff.New:
			c.New++
		case diff.Modified:
			c.Modified++
		case diff.Extra:
			c.Extra++
		case diff.Excluded:
			c.Excluded++
		case diff.ForceUpdate:
			c.ForceUpdate++
		}
	}
	return c
}
