// Package domain models disaster records on their way from source adapters
// to the correlated catalog.
//
// # Record Roles
//
// Every record plays exactly one structural role:
//
//	event   the occurrence itself, reported by a source or kept as the
//	        reference record of its cluster (markers: event + source|reference)
//	hazard  the physical process, always source-derived (markers: hazard [+ source])
//	impact  a quantified effect, always source-derived (markers: impact [+ source])
//
// [Classify] turns the raw marker set into a [Role] before anything else runs.
// "response" is recognised but not processed.
//
// # Hazard Codes
//
// Sources describe hazards in three vocabularies (see package taxonomy).
// [Normalizer.Normalize] resolves them into one ordered [HazardCodeSet]:
//
//	[structured code] + [legacy code] + [database key] + [unmatched...]
//	e.g. ["FL", "nat-hyd-flo-flo", "MH0600"] -> ["MH0600", "FL", "nat-hyd-flo-flo"]
//
// Hazard records must end up with exactly one structured code in position 0
// and at most one code of each other scheme. Event records may aggregate
// several hazards.
//
// # Correlation Keys
//
// [BuildKey] links records describing the same event episode:
//
//	20241029-ESP-MH0600-1-GCDB
//	day (UTC) - sorted countries - canonical code - episode - source tag
//
// Sub-day timestamp jitter and country order never split a cluster;
// episodes of one evolving event are separate clusters.
//
// # Failures
//
// All failures are per record and wrap one of the sentinel errors in this
// package (or taxonomy.ErrAmbiguousTaxonomyMapping). [RecordError] carries
// them through batches with a stable [RecordError.Reason] label.
package domain
