package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// renderers hands out glamour renderers keyed by their options. A
// TermRenderer holds per-render state, so each one is used by a single
// goroutine at a time and returned afterwards.
type renderers struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

var shared = newRenderers()

func newRenderers() *renderers {
	return &renderers{pools: make(map[Options]*sync.Pool)}
}

func (r *renderers) pool(opts Options) *sync.Pool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[opts]
	if !ok {
		p = &sync.Pool{}
		r.pools[opts] = p
	}
	return p
}

// borrow returns a pooled renderer for opts, building one when the pool
// is empty
func (r *renderers) borrow(opts Options) (*glamour.TermRenderer, error) {
	if tr, ok := r.pool(opts).Get().(*glamour.TermRenderer); ok {
		return tr, nil
	}
	return newTermRenderer(opts)
}

func (r *renderers) release(opts Options, tr *glamour.TermRenderer) {
	if tr != nil {
		r.pool(opts).Put(tr)
	}
}

// len reports how many distinct option sets have been seen
func (r *renderers) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	style := glamour.WithStylePath(opts.Style)
	if IsStandardStyle(opts.Style) {
		style = glamour.WithStandardStyle(opts.Style)
	}

	tropts := []glamour.TermRendererOption{
		style,
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
	}
	if opts.EnableEmoji {
		tropts = append(tropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		tropts = append(tropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(tropts...)
}
