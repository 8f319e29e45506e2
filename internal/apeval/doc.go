// Package apeval turns per-scene instance matches into per-class average
// precision.
//
// For every (region filter, overlap threshold, class) cell each scene is
// scored independently into a Contribution: ground-truth instances matched
// above the threshold become true positives carrying the prediction's
// confidence, surplus and unmatched predictions become false positives
// unless they mostly cover ignored regions. Contributions are concatenated
// across scenes, a precision/recall curve is built over the unique scores,
// and the curve is integrated with a centred step-width rule.
//
// Summarize reduces the resulting table to mean AP, AP at 50% overlap and,
// when configured, AP at 25% overlap.
package apeval
