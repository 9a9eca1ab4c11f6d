package taxonomy

import "regexp"

// Scheme identifies which vocabulary a hazard code belongs to.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	// SchemeStructured is the current version of the structured code space.
	SchemeStructured
	// SchemeLegacyStructured is a previous-version structured code that has
	// to be migrated before use.
	SchemeLegacyStructured
	SchemeLegacy
	SchemeDatabase
)

func (s Scheme) String() string {
	switch s {
	case SchemeStructured:
		return "structured"
	case SchemeLegacyStructured:
		return "legacy_structured"
	case SchemeLegacy:
		return "legacy"
	case SchemeDatabase:
		return "database"
	default:
		return "unknown"
	}
}

var (
	structuredRe = regexp.MustCompile(`^[A-Z]{2}\d{4}$`)
	legacyRe     = regexp.MustCompile(`^[A-Z]{2}$`)
	databaseRe   = regexp.MustCompile(`^[a-z]+(-[a-z]+)+$`)
)

// PatternOf classifies a code by shape alone. It cannot tell a current
// structured code from a previous-version one; use [Table.Classify] for that.
func PatternOf(code string) Scheme {
	switch {
	case structuredRe.MatchString(code):
		return SchemeStructured
	case legacyRe.MatchString(code):
		return SchemeLegacy
	case databaseRe.MatchString(code):
		return SchemeDatabase
	default:
		return SchemeUnknown
	}
}
