// Package textutil provides token fingerprints for fuzzy text matching and
// file-name sanitization.
//
// Asset resolution uses it to match stock-media search queries against the
// file names in a local library: both sides are tokenized into lowercase
// terms with accents folded, weighted by inverse document frequency across
// the library, and compared with cosine similarity. Slug names the copied
// files.
package textutil
