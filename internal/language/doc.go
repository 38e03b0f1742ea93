// Package language normalizes transcript and project language settings.
//
// Values arrive from CLI flags, splice.toml stage settings and transcript
// sidecars in several shapes: ISO 639-1 codes ("en"), ISO 639-2 terminology
// or bibliographic codes ("deu", "ger"), BCP 47 tags ("pt-BR") and English
// names ("German"). Normalize folds all of them onto the base ISO 639-1 code
// that providers and artifacts carry.
package language
