// Package field implements enumerated-choice form controls bound to one
// path of the session state.
package field

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dukerupert/benefitform/internal/model"
)

var (
	ErrIndexOutOfRange = errors.New("choice index out of range")
	ErrEmptyDomain     = errors.New("domain has no choices")
	ErrClosed          = errors.New("controller closed")
)

// Option is one entry of a rendered control.
type Option struct {
	Index    int    `json:"index"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// View is the rendered state of a controller.
type View struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Path     string   `json:"path"`
	Selected int      `json:"selected"`
	Options  []Option `json:"options"`
}

// Controller renders a Domain as a discrete choice and writes the chosen
// code through its Binding. It follows its path: any change of the bound
// value, whoever made it, re-derives the selection.
type Controller struct {
	key     string
	label   string
	domain  Domain
	binding Binding

	mu        sync.Mutex
	selected  int
	lastRev   uint64
	listeners []func(View)
	cancel    func()
	closed    bool
}

// New creates a controller and subscribes it to its path. It fails when
// the binding cannot be read, such as for a member that does not exist.
// Rendering never writes: an absent value simply selects index 0.
func New(key, label string, domain Domain, binding Binding) (*Controller, error) {
	if domain.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", key, ErrEmptyDomain)
	}
	if _, _, _, err := binding.Read(); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	c := &Controller{
		key:     key,
		label:   label,
		domain:  domain,
		binding: binding,
	}
	c.cancel = binding.Watch(c.resync)

	v, _, rev, err := binding.Read()
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	// Notifications up to rev are already reflected in v.
	c.mu.Lock()
	if rev >= c.lastRev {
		c.selected = domain.IndexOf(v)
		c.lastRev = rev
	}
	c.mu.Unlock()
	return c, nil
}

func (c *Controller) Key() string { return c.key }

// Selected returns the index currently displayed.
func (c *Controller) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// View renders the controller.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	opts := make([]Option, len(c.domain.Choices))
	for i, ch := range c.domain.Choices {
		opts[i] = Option{Index: i, Label: ch.Label, Selected: i == c.selected}
	}
	return View{
		Key:      c.key,
		Label:    c.label,
		Path:     c.binding.Path(),
		Selected: c.selected,
		Options:  opts,
	}
}

// Select writes the code at index i. The displayed selection follows from
// the resulting change notification.
func (c *Controller) Select(i int) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return fmt.Errorf("%s: %w", c.key, ErrClosed)
	}

	code, err := c.domain.Code(i)
	if err != nil {
		return fmt.Errorf("%s: %w", c.key, err)
	}
	if err := c.binding.Write(code); err != nil {
		return fmt.Errorf("%s: %w", c.key, err)
	}
	return nil
}

// OnChange registers fn to receive the new view whenever the displayed
// selection changes.
func (c *Controller) OnChange(fn func(View)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) resync(v model.Value, rev uint64) {
	c.mu.Lock()
	if c.closed || rev <= c.lastRev {
		c.mu.Unlock()
		return
	}
	c.lastRev = rev
	idx := c.domain.IndexOf(v)
	if idx == c.selected {
		c.mu.Unlock()
		return
	}
	c.selected = idx
	view := c.viewLocked()
	listeners := append([]func(View){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(view)
	}
}

// Close stops following the path.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.listeners = nil
	c.mu.Unlock()
	c.cancel()
}
