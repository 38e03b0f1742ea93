// Package config loads, normalizes, and validates splice configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SPLICE_LLM_API_KEY. The Config type centralizes every knob the pipeline
// and CLI need: where projects live, how long each stage may run, which
// providers a stage tries and in what order, and how retries back off.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider kinds, and clear validation errors.
package config
