// Package ui implements an interactive terminal interface for the campaign workflow using bubbletea's Elm
// architecture.
//
// The TUI walks through:
//  1. [PreviewView] : Browse the subscribers about to be imported
//  2. [ConfirmView] : Confirm the run against the configured profile and campaign
//  3. [RunView] : Monitor progress updates of every workflow stage; quit cancels the run
//  4. [ResultView] : Display the run summary
//
// Progress updates flow through a channel from the [tasks.Workflow] and are consumed one message at a time, so a
// slow terminal never blocks the workflow.
package ui
