// Package watch rebuilds assets whenever the source tree changes. It
// monitors source directories recursively with fsnotify, optionally waits
// for a quiet period after rapid events, and serialises rebuilds so that
// at most one runs at a time with at most one more queued behind it.
package watch
