// Package timeline assembles the rough-cut timeline from validated upstream
// artifacts.
//
// Remove ranges from the cut plan are clamped to the source, merged, and
// inverted into keep ranges that become contiguous source clips. Template
// placements, resolved assets, and transcript captions are remapped from
// source time onto the cut timeline; anything that falls entirely inside
// removed material is dropped.
package timeline
