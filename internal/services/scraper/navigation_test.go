package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainFrame = cdp.FrameID("main")

func lifecycle(frame cdp.FrameID, loader cdp.LoaderID, name string) *page.EventLifecycleEvent {
	return &page.EventLifecycleEvent{FrameID: frame, LoaderID: loader, Name: name}
}

func TestNavigationWatcher_LateLoginIdleIgnoredAfterSubmit(t *testing.T) {
	w := newNavigationWatcher(mainFrame)
	w.observe(lifecycle(mainFrame, "login", lifecycleInit))
	w.observe(lifecycle(mainFrame, "login", "DOMContentLoaded"))

	previous := w.loader()
	require.Equal(t, cdp.LoaderID("login"), previous)

	// The login page settles only after the form was submitted
	w.observe(lifecycle(mainFrame, "login", lifecycleNetworkIdle))
	assert.False(t, w.settled(previous))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.waitIdle(ctx, previous), context.DeadlineExceeded)

	w.observe(lifecycle(mainFrame, "dashboard", lifecycleInit))
	assert.False(t, w.settled(previous))
	w.observe(lifecycle(mainFrame, "dashboard", lifecycleNetworkIdle))
	assert.True(t, w.settled(previous))
}

func TestNavigationWatcher_IgnoresOtherFrames(t *testing.T) {
	w := newNavigationWatcher(mainFrame)
	w.observe(lifecycle(mainFrame, "login", lifecycleInit))

	w.observe(lifecycle("iframe", "ads", lifecycleInit))
	w.observe(lifecycle("iframe", "ads", lifecycleNetworkIdle))
	w.observe(&page.EventFrameNavigated{})

	assert.Equal(t, cdp.LoaderID("login"), w.loader())
	assert.False(t, w.settled(""))
}

func TestNavigationWatcher_WaitCurrent(t *testing.T) {
	w := newNavigationWatcher(mainFrame)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done <- w.waitIdle(ctx, "")
	}()

	w.observe(lifecycle(mainFrame, "login", lifecycleInit))
	w.observe(lifecycle(mainFrame, "login", lifecycleNetworkIdle))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waitIdle did not return after network idle")
	}
}

func TestNavigationWatcher_IdleBeforeWaitIsRemembered(t *testing.T) {
	w := newNavigationWatcher(mainFrame)
	w.observe(lifecycle(mainFrame, "login", lifecycleInit))
	w.observe(lifecycle(mainFrame, "login", lifecycleNetworkIdle))
	w.observe(lifecycle(mainFrame, "result", lifecycleInit))
	w.observe(lifecycle(mainFrame, "result", lifecycleNetworkIdle))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.waitIdle(ctx, "login"))
}
