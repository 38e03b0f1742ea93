// Package preflight provides readiness checks for the directories and
// providers a splice run depends on.
//
// `splice preflight` runs RunAll and prints one row per check. Only
// providers referenced by a stage chain are checked; builtin providers run
// in-process and need no check. LLM endpoints are pinged once per distinct
// endpoint, key, and model.
package preflight
