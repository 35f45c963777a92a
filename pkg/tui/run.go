package tui

import (
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
)

// Run opens the browser on r and blocks until the user quits. Session
// views produced off the event loop (debounced edits, reloads) are sent to
// the program as ViewMsg.
func Run(r *roll.Roll, opts ...roll.SessionOption) error {
	var prog atomic.Pointer[tea.Program]
	opts = append(opts, roll.OnChange(func(v roll.View) {
		if p := prog.Load(); p != nil {
			p.Send(ViewMsg(v))
		}
	}))
	s := roll.NewSession(r, opts...)
	defer s.Close()

	p := tea.NewProgram(New(s), tea.WithAltScreen())
	prog.Store(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}
