// Package ui implements a terminal status monitor using bubbletea's Elm architecture.
//
// The [Model] polls the dashboard's status endpoint on an interval and
// renders the sync engine's phase, cycle counters, and the last cycle's
// report. A manual sync can be requested with a single keypress; the
// request goes through the same trigger endpoint the web dashboard uses,
// so the monitor never touches engine state directly.
//
// Keyboard bindings (s/r/q) are displayed via charmbracelet/bubbles/help.
package ui
