package domain

import "github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"

// DeriveKeywords maps each code to its label, cluster label and family label
// in code order. Duplicates and empty labels are dropped; codes the table
// cannot describe are skipped.
func DeriveKeywords(table *taxonomy.Table, codes HazardCodeSet) []string {
	keywords := []string{}
	seen := make(map[string]bool)
	for _, code := range codes.Codes() {
		e, ok := table.Describe(code)
		if !ok {
			continue
		}
		for _, kw := range []string{e.Label, e.ClusterLabel, e.FamilyLabel} {
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords = append(keywords, kw)
		}
	}
	return keywords
}
