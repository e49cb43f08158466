// Package ui implements the sync progress terminal interface using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [RunView] : Spinner, phase and the most recent per-invoice updates while the sync runs
//  2. [ResultView] : Summary counters and a scrollable list of every invoice outcome
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the sync engine, providing non-blocking status reporting.
//
// The package also exposes the lipgloss palette used by the CLI for operator messages.
package ui
