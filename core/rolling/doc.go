// Package rolling decomposes a long horizon into overlapping windows solved
// in sequence. Each window is solved with the previous windows' locked
// assignments fixed, and its leading lock_days of work are locked in turn.
package rolling
