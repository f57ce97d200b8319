package patchbay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrel/patchbay"
)

func TestResolveNames(t *testing.T) {
	w := newWorld()

	t.Run("values resolve, keys stay", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{
			patchbay.Name("camera"): patchbay.Name("drv"),
		})
		require.NoError(t, m.AddDefaults(patchbay.Name("task")))

		unresolved, err := m.ResolveNames(patchbay.NameMap{
			"drv":  w.Firewire,
			"task": w.RGBD,
		})
		require.NoError(t, err)
		assert.Empty(t, unresolved)
		assert.Same(t, w.Firewire, m.Explicit()[patchbay.Name("camera")],
			"the key keeps naming the slot, only the value is replaced")
		assert.Equal(t, []patchbay.SelectionValue{w.RGBD}, m.Defaults())
	})

	t.Run("unknown names are reported sorted and left in place", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{
			patchbay.Name("a"): patchbay.Name("zzz"),
			patchbay.Name("b"): patchbay.Name("aaa"),
		})
		unresolved, err := m.ResolveNames(patchbay.NameMap{})
		require.NoError(t, err)
		assert.Equal(t, []string{"aaa", "zzz"}, unresolved)
		assert.Equal(t, patchbay.Name("zzz"), m.Explicit()[patchbay.Name("a")])
	})

	t.Run("a name may resolve to another name", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("a"): patchbay.Name("b")})
		unresolved, err := m.ResolveNames(patchbay.NameMap{"b": patchbay.Name("c")})
		require.NoError(t, err)
		assert.Empty(t, unresolved)
		assert.Equal(t, patchbay.Name("c"), m.Explicit()[patchbay.Name("a")],
			"no recursive lookup; chains resolve later")
	})

	t.Run("dotted names select a named service", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Depth: patchbay.Name("drv.depth")})
		unresolved, err := m.ResolveNames(patchbay.NameMap{"drv": w.RGBD})
		require.NoError(t, err)
		assert.Empty(t, unresolved)
		assert.Same(t, w.DepthBound, m.Explicit()[patchbay.SelectionKey(w.Depth)])
	})

	t.Run("a missing service fails the whole call", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("x"): patchbay.Name("drv.nope")})
		_, err := m.ResolveNames(patchbay.NameMap{"drv": w.RGBD})
		var nameErr *patchbay.NameResolutionError
		require.ErrorAs(t, err, &nameErr)
		assert.Equal(t, []string{"drv.nope"}, nameErr.Names)
		assert.Contains(t, nameErr.Detail, "nope")
	})

	t.Run("a dotted base without services fails", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("x"): patchbay.Name("img.frame")})
		_, err := m.ResolveNames(patchbay.NameMap{"img": w.Image})
		var nameErr *patchbay.NameResolutionError
		require.ErrorAs(t, err, &nameErr)
		assert.Contains(t, nameErr.Detail, "has no named services")
	})

	t.Run("a failed call leaves the map untouched", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{
			patchbay.Name("camera"): patchbay.Name("drv"),
			patchbay.Name("x"):      patchbay.Name("drv.nope"),
		})
		require.NoError(t, m.AddDefaults(patchbay.Name("drv")))

		_, err := m.ResolveNames(patchbay.NameMap{"drv": w.RGBD})
		var nameErr *patchbay.NameResolutionError
		require.ErrorAs(t, err, &nameErr)

		assert.Equal(t, patchbay.Name("drv"), m.Explicit()[patchbay.Name("camera")],
			"no entry is committed when a later lookup fails")
		assert.Equal(t, []patchbay.SelectionValue{patchbay.Name("drv")}, m.Defaults())
	})

	t.Run("an unknown dotted base is just unresolved", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("x"): patchbay.Name("ghost.srv")})
		unresolved, err := m.ResolveNames(patchbay.NameMap{})
		require.NoError(t, err)
		assert.Equal(t, []string{"ghost.srv"}, unresolved)
	})
}

func TestRemoveUnresolved(t *testing.T) {
	w := newWorld()
	m := patchbay.MustSelectionMap(patchbay.Use{
		w.Image:                 patchbay.Name("ghost"),
		patchbay.Name("camera"): w.Usb,
	})
	require.NoError(t, m.AddDefaults(patchbay.Name("ghost"), w.RGBD))

	m.RemoveUnresolved()

	v, ok, err := m.SelectionFor(w.Image)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, v, "unresolved explicit selections become use-nothing")

	v, ok, err = m.SelectionFor(patchbay.Name("camera"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, w.Usb, v)

	assert.Equal(t, []patchbay.SelectionValue{w.RGBD}, m.Defaults(),
		"unresolved name defaults are dropped")
}
