// Package events defines the rolling horizon events emitted on the event bus.
//
// Available event types:
//   - WindowSolved: a window finished and its locks were computed
//   - WindowFailed: a window could not be solved and the rolling solve stopped
package events
