// Package taxonomy holds the hazard classification reference table that every
// record passes through on its way to a correlation id.
//
// # Code Spaces
//
// Three independently versioned vocabularies describe the same hazards:
//
//	Structured code:  2 letters + 4 digits, e.g. "MH0600" (current version).
//	                  The previous version used the same shape ("MH0012"), so
//	                  a structured-looking code is only "current" if the table
//	                  lists it as such.
//	Legacy code:      2-letter disaster type from the GLIDE registry, e.g. "FL".
//	Database key:     hyphen-delimited EM-DAT classification, e.g. "nat-hyd-flo-flo".
//
// # Reference Dataset
//
// The table is built from a CSV file with the columns
//
//	structured_code, legacy_structured_code, label, cluster_label,
//	family_label, legacy_code, database_key, is_chapeau
//
// A copy ships embedded in the binary (see [Default]); TAXONOMY_PATH may point
// at a replacement file with the same header. Malformed rows, duplicate
// structured codes and conflicting chapeau markers fail the build with
// [ErrTaxonomyBuild]; nothing is dropped silently.
//
// # Chapeau Codes
//
// One legacy code often covers several current codes ("FL" spans coastal,
// fluvial, pluvial... floods). The row flagged is_chapeau=true is the umbrella
// chosen when a legacy code has to be resolved to a single current code. Some
// families (drought) have no designated umbrella yet; resolving them returns
// [ErrAmbiguousTaxonomyMapping] rather than guessing an order.
//
// Rows without a structured code are legacy-only gaps pending classification.
// They are returned by legacy and database lookups but never resolve to a
// structured code.
package taxonomy
