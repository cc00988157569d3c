package app

import (
	"sync"

	"github.com/feedwatchdog/admin/adapters/remote"
)

// Dialog is the modal notification shown over any screen.
type Dialog struct {
	mu     sync.Mutex
	active bool
	title  string
	text   string
}

// DialogState is a point-in-time copy of a Dialog.
type DialogState struct {
	Active bool
	Title  string
	Text   string
}

// Set opens the dialog with text and an optional title.
func (d *Dialog) Set(text, title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	d.title = title
	d.active = true
}

// Close hides the dialog.
func (d *Dialog) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = false
}

// Snapshot returns the current state.
func (d *Dialog) Snapshot() DialogState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DialogState{Active: d.active, Title: d.title, Text: d.text}
}

// Navigation holds the state of the navigation panel.
type Navigation struct {
	mu     sync.Mutex
	closed bool
}

// ToggleLeftSideBar opens the side bar if it is closed and closes it otherwise.
func (n *Navigation) ToggleLeftSideBar() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = !n.closed
}

// LeftSideBarOpen reports whether the side bar is open. It starts open.
func (n *Navigation) LeftSideBarOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.closed
}

// Chrome is the UI state shared by every screen of one user: the error
// dialog and the navigation panel.
type Chrome struct {
	Dialog     *Dialog
	Navigation *Navigation
}

// NewChrome creates chrome with a closed dialog and an open side bar.
func NewChrome() *Chrome {
	return &Chrome{Dialog: &Dialog{}, Navigation: &Navigation{}}
}

// Escalate shows transport and server failures in the dialog and reports
// whether it did. Other errors belong to the form that caused them.
func (c *Chrome) Escalate(err error) bool {
	if c == nil || err == nil || !remote.IsServerError(err) {
		return false
	}
	c.Dialog.Set(err.Error(), "Server error")
	return true
}
