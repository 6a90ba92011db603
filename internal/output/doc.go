// Package output delivers rendered reports, such as build plans and tree
// diffs, to their destination: a stream like stdout or a file on disk.
//
// File output is written atomically through a temporary file in the target
// directory, so a reader never observes a half-written report.
package output
