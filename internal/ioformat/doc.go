// Package ioformat reads the benchmark's submission and ground-truth file
// formats: per-vertex id files, binary masks, PNG label images, instance
// prediction lists and scene type lists.
//
// Malformed submissions are reported as faults.UserFault. All reads go
// through an fsutil.FileSystem.
package ioformat
