package patchbay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrel/patchbay"
	"github.com/ambrel/patchbay/modelkit"
)

func TestInstanceSelectionFor(t *testing.T) {
	w := newWorld()

	t.Run("an explicit bound service pins the instance", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Image: w.ColorBound})
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.Image))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
		require.Same(t, w.ColorBound, sel.Services[w.Image])
		assert.Equal(t, map[string]string{"frame": "color_frame"}, sel.PortMappings)
	})

	t.Run("an empty map selects the required model itself", func(t *testing.T) {
		m := patchbay.MustSelectionMap()
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.RGBD))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
		assert.Empty(t, sel.Services)
		assert.Empty(t, sel.PortMappings)
	})

	t.Run("service-only requirements get a placeholder", func(t *testing.T) {
		m := patchbay.MustSelectionMap()
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.Image, w.Depth))
		require.NoError(t, err)
		require.NotNil(t, sel.Component)
		assert.Contains(t, sel.Component.ModelName(), "placeholder(")
		require.NotNil(t, sel.Services[w.Image])
		require.NotNil(t, sel.Services[w.Depth])
		assert.Equal(t, map[string]string{"frame": "frame", "cloud": "cloud"}, sel.PortMappings)
	})

	t.Run("defaults select the component and its services", func(t *testing.T) {
		m := patchbay.MustSelectionMap(w.RGBD)
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.Image))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
		require.Same(t, w.ColorBound, sel.Services[w.Image])
		assert.Equal(t, map[string]string{"frame": "color_frame"}, sel.PortMappings)
	})

	t.Run("a named selection binds every required model", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("camera"): w.Firewire})
		sel, err := m.InstanceSelectionFor("camera", modelkit.Require(w.Camera, w.Image))
		require.NoError(t, err)
		assert.Same(t, w.Firewire, sel.Component)
		bs := sel.Services[w.Image]
		require.NotNil(t, bs)
		assert.Same(t, w.Firewire, bs.Component(), "the image service is attached to the selected subtype")
		assert.Same(t, w.Image, bs.Service())
	})

	t.Run("a named selection that cannot fulfill the requirement fails", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("camera"): w.Stereo})
		_, err := m.InstanceSelectionFor("camera", modelkit.Require(w.Depth))
		var incompatible *patchbay.IncompatibleSelectionError
		require.ErrorAs(t, err, &incompatible)
	})

	t.Run("a named selection may be ambiguous", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("camera"): w.Stereo})
		_, err := m.InstanceSelectionFor("camera", modelkit.Require(w.Image))
		var ambiguous *patchbay.AmbiguousServiceError
		require.ErrorAs(t, err, &ambiguous)
	})

	t.Run("an unknown name falls back to per-model resolution", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Image: w.ColorBound})
		sel, err := m.InstanceSelectionFor("nonexistent", modelkit.Require(w.Image))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
	})

	t.Run("an unresolved name selection fails", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Image: patchbay.Name("ghost")})
		_, err := m.InstanceSelectionFor("", modelkit.Require(w.Image))
		var nameErr *patchbay.NameResolutionError
		require.ErrorAs(t, err, &nameErr)
		assert.Equal(t, []string{"ghost"}, nameErr.Names)
	})

	t.Run("use-nothing leaves the requirement unfulfilled", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Image: nil})
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.Image))
		require.NoError(t, err)
		assert.Nil(t, sel.Component)
		assert.Empty(t, sel.Services)
	})

	t.Run("a bound-service requirement resolves through its service type", func(t *testing.T) {
		m := patchbay.MustSelectionMap()
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.ColorBound))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
		require.Same(t, w.ColorBound, sel.Services[w.ColorBound])
		assert.Equal(t, map[string]string{"frame": "color_frame"}, sel.PortMappings)
	})

	t.Run("a named selection satisfies a bound-service requirement", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{patchbay.Name("camera"): w.RGBD})
		sel, err := m.InstanceSelectionFor("camera", modelkit.Require(w.ColorBound))
		require.NoError(t, err)
		assert.Same(t, w.RGBD, sel.Component)
		require.Same(t, w.ColorBound, sel.Services[w.ColorBound])
		assert.Equal(t, map[string]string{"frame": "color_frame"}, sel.PortMappings)
	})

	t.Run("requirement values expand into their models", func(t *testing.T) {
		m := patchbay.MustSelectionMap(patchbay.Use{w.Camera: modelkit.Require(w.Firewire)})
		sel, err := m.InstanceSelectionFor("", modelkit.Require(w.Camera))
		require.NoError(t, err)
		assert.Same(t, w.Firewire, sel.Component)
	})
}
