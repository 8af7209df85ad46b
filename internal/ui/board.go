// ABOUTME: Terminal board runner wrapping the bubbletea program
// ABOUTME: Forwards engine snapshots in and key commands out over channels
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Board runs the pad grid in the foreground terminal
type Board struct {
	program  *tea.Program
	updates  chan BoardMsg
	control  *Control
	stopOnce sync.Once
}

// NewBoard creates a board for the given pads
func NewBoard(pads []Pad, columns int) *Board {
	control := NewControl()
	return &Board{
		program: tea.NewProgram(NewModel(pads, columns, control), tea.WithAltScreen()),
		updates: make(chan BoardMsg, 10),
		control: control,
	}
}

// Start runs the board. Blocks until the user quits or Quit is called.
func (b *Board) Start() error {
	// Forward updates to the program
	go func() {
		for msg := range b.updates {
			b.program.Send(msg)
		}
	}()

	_, err := b.program.Run()
	return err
}

// Update pushes a fresh snapshot to the board. Drops the frame when the
// board is behind rather than stalling the poll loop.
func (b *Board) Update(msg BoardMsg) {
	select {
	case b.updates <- msg:
	default:
	}
}

// Quit asks the program to exit. Safe to call at any time.
func (b *Board) Quit() {
	b.program.Quit()
}

// Stop shuts the board down. Callers must stop pushing updates first.
func (b *Board) Stop() {
	b.stopOnce.Do(func() {
		b.program.Quit()
		close(b.updates)
	})
}

// Commands returns the channel of key-driven actions
func (b *Board) Commands() <-chan Command {
	return b.control.Commands
}

// QuitChan returns a channel that signals when the user quits
func (b *Board) QuitChan() <-chan struct{} {
	return b.control.Quit
}
