// Package stage declares the fixed pipeline stage catalogue.
//
// Each Definition names the artifact its stage produces, the upstream
// artifacts it reads, how a provider request and language-model prompt are
// built from those artifacts, the validation context its output is checked
// against, and how a validated artifact is summarized for run reports.
//
// The package also hosts the in-process builtin providers that serve as the
// last entry of most provider chains: transcript import, heuristic cut
// planning, caption placement, empty asset suggestions, stock library
// resolution, and rough-cut timeline assembly.
package stage
