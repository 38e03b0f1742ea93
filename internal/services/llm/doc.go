// Package llm provides an OpenAI-compatible chat client used by pipeline
// stages that delegate planning to a language model.
//
// Stages send a system prompt and a user prompt describing upstream
// artifacts; the model must answer with a single JSON document. ExtractJSON
// recovers that document from common formatting quirks (code fences, prose
// around the object).
//
// Each call is a single HTTP attempt; the pipeline's fallback policy decides
// whether to retry or rotate providers. StatusError and EmptyContentError let
// the caller classify failures.
package llm
