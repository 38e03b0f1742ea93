// Package artifact defines the data contracts every pipeline stage must
// satisfy before its output is persisted.
//
// Validate runs two passes over a raw JSON payload. The structural pass
// checks required fields, primitive types, and that every time field is a
// non-negative integer count of microseconds. The semantic pass then checks
// ordering (start < end), bounds against the source duration, referential
// integrity between artifacts, and non-overlap of template placements.
// Both passes collect every violation rather than stopping at the first,
// and neither mutates its input.
//
// A payload that passes yields a Validated value holding the typed artifact;
// Validated.Encode produces the canonical bytes written to disk, so fields
// that were never validated cannot reach an artifact file.
package artifact
