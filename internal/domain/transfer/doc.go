// Package transfer converts between preview documents and files.
//
// Import is the inverse of composition for documents this tool produced and
// tolerates hand-written HTML: several style blocks, external scripts and
// broken markup all import without error.
package transfer
