package profile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ambrel/patchbay"
	"github.com/ambrel/patchbay/profile"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	f := newFixture(t)
	f.write(t, "lab", `
name: lab
selections:
  CameraDriver: UsbCamera
`)
	w, err := profile.NewWatcher(f.loader(), "lab", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	changed := make(chan *patchbay.SelectionMap, 1)
	w.OnChange(func(sel *patchbay.SelectionMap) {
		select {
		case changed <- sel:
		default:
		}
	})

	v, ok, err := w.Current().SelectionFor(patchbay.SelectionKey(f.camera))
	require.NoError(t, err)
	require.True(t, ok)
	require.Same(t, f.usb, v)

	f.write(t, "lab", `
name: lab
selections:
  CameraDriver: FirewireCamera
`)

	select {
	case sel := <-changed:
		v, ok, err := sel.SelectionFor(patchbay.SelectionKey(f.camera))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Same(t, f.firewire, v)
		assert.True(t, w.Current().Equal(sel))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for profile reload")
	}
}

func TestWatcherKeepsPreviousOnBrokenReload(t *testing.T) {
	f := newFixture(t)
	f.write(t, "lab", `
name: lab
selections:
  CameraDriver: UsbCamera
`)
	w, err := profile.NewWatcher(f.loader(), "lab", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	f.write(t, "lab", "name: lab\nselections: {{{ not yaml\n")

	// no valid reload can arrive; give the debounce time to fire and
	// check the previous selections survived
	require.Eventually(t, func() bool {
		v, ok, err := w.Current().SelectionFor(patchbay.SelectionKey(f.camera))
		return err == nil && ok && v == patchbay.SelectionValue(f.usb)
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWatcherCloseTwice(t *testing.T) {
	f := newFixture(t)
	f.write(t, "lab", "name: lab\n")
	w, err := profile.NewWatcher(f.loader(), "lab", nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcherFailsOnUnloadableProfile(t *testing.T) {
	f := newFixture(t)
	_, err := profile.NewWatcher(f.loader(), "absent", zaptest.NewLogger(t))
	require.Error(t, err)
}
