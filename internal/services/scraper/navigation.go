package scraper

import (
	"context"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
)

const (
	lifecycleInit        = "init"
	lifecycleNetworkIdle = "networkIdle"
)

// navigationWatcher follows lifecycle events of one frame and tells which
// committed document (loader) has reached network idle. Events for other
// frames are ignored.
type navigationWatcher struct {
	frameID cdp.FrameID

	mu      sync.Mutex
	current cdp.LoaderID
	idle    map[cdp.LoaderID]bool
	changed chan struct{}
}

func newNavigationWatcher(frameID cdp.FrameID) *navigationWatcher {
	return &navigationWatcher{
		frameID: frameID,
		idle:    make(map[cdp.LoaderID]bool),
		changed: make(chan struct{}, 1),
	}
}

// observe is a chromedp target listener
func (w *navigationWatcher) observe(ev interface{}) {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok || e.FrameID != w.frameID {
		return
	}

	w.mu.Lock()
	switch e.Name {
	case lifecycleInit:
		w.current = e.LoaderID
	case lifecycleNetworkIdle:
		w.idle[e.LoaderID] = true
	default:
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	select {
	case w.changed <- struct{}{}:
	default:
	}
}

// loader returns the loader of the document currently committed in the frame
func (w *navigationWatcher) loader() cdp.LoaderID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// settled reports whether a document other than previous is committed and idle
func (w *navigationWatcher) settled(previous cdp.LoaderID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current != "" && w.current != previous && w.idle[w.current]
}

// waitIdle blocks until a document other than previous is committed in the
// frame and has reached network idle. Pass "" to wait for whatever document
// is current.
func (w *navigationWatcher) waitIdle(ctx context.Context, previous cdp.LoaderID) error {
	for {
		if w.settled(previous) {
			return nil
		}
		select {
		case <-w.changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
