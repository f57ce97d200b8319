package modelkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ambrel/patchbay"
	"github.com/ambrel/patchbay/modelkit"
)

// foreignService is a ServiceModel from outside the package; merges must
// reject it since they cannot synthesize placeholders over it.
type foreignService struct{}

func (foreignService) ModelName() string { return "foreign.Service" }

func (foreignService) Fulfills(patchbay.Model) bool { return false }

func (foreignService) EachFulfilledModel(func(patchbay.Model) bool) {}

func TestRequire(t *testing.T) {
	r := newRig()

	t.Run("required models are copied", func(t *testing.T) {
		spec := modelkit.Require(r.Camera, r.Depth)
		got := spec.RequiredModels()
		require.Equal(t, []patchbay.Model{r.Camera, r.Depth}, got)
		got[0] = r.Stereo
		assert.Equal(t, []patchbay.Model{r.Camera, r.Depth}, spec.RequiredModels(),
			"callers cannot mutate the spec through the returned slice")
	})

	t.Run("fulfills through any required model", func(t *testing.T) {
		spec := modelkit.Require(r.Firewire, r.Depth)
		assert.True(t, spec.Fulfills(r.Firewire))
		assert.True(t, spec.Fulfills(r.Camera))
		assert.True(t, spec.Fulfills(r.Image))
		assert.True(t, spec.Fulfills(r.Depth))
		assert.False(t, spec.Fulfills(r.Stereo))
	})

	t.Run("fulfilled models are the union of the requirements", func(t *testing.T) {
		spec := modelkit.Require(r.Firewire, r.DepthSrv)
		var walked []patchbay.Model
		spec.EachFulfilledModel(func(m patchbay.Model) bool {
			walked = append(walked, m)
			return true
		})
		assert.Contains(t, walked, patchbay.Model(r.Firewire))
		assert.Contains(t, walked, patchbay.Model(r.Camera))
		assert.Contains(t, walked, patchbay.Model(r.Image))
		assert.Contains(t, walked, patchbay.Model(r.Depth))
		assert.Contains(t, walked, patchbay.Model(r.RGBD))
		seen := make(map[patchbay.Model]int)
		for _, m := range walked {
			seen[m]++
		}
		for m, n := range seen {
			assert.Equal(t, 1, n, "%s walked more than once", m.ModelName())
		}
	})

	t.Run("string names the required models", func(t *testing.T) {
		spec := modelkit.Require(r.Camera, r.Depth)
		assert.Equal(t, "require(CameraDriver,DepthSource)", spec.String())
	})
}

func TestInstanceSpecUse(t *testing.T) {
	r := newRig()

	spec := modelkit.Require(r.Camera)
	assert.Nil(t, spec.Selections())

	require.NoError(t, spec.Use(patchbay.Use{patchbay.Name("driver"): r.Firewire}))
	require.NotNil(t, spec.Selections())
	v, ok, err := spec.Selections().SelectionFor(patchbay.Name("driver"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, r.Firewire, v)

	require.NoError(t, spec.Use(r.RGBD), "later calls add to the same map")
	assert.Len(t, spec.Selections().Defaults(), 1)

	err = spec.Use(patchbay.Use{r.CamSrv: r.Firewire})
	var invalid *patchbay.InvalidSelectionError
	require.ErrorAs(t, err, &invalid, "selection validation applies here too")
}

func TestInstanceSpecDup(t *testing.T) {
	r := newRig()

	spec := modelkit.Require(r.Camera)
	require.NoError(t, spec.Use(patchbay.Use{patchbay.Name("driver"): r.Firewire}))

	dup, ok := spec.Dup().(*modelkit.InstanceSpec)
	require.True(t, ok)
	assert.Equal(t, spec.RequiredModels(), dup.RequiredModels())
	require.NotNil(t, dup.Selections())
	assert.NotSame(t, spec.Selections(), dup.Selections())

	require.NoError(t, dup.Use(patchbay.Use{patchbay.Name("driver"): r.Usb}))
	v, ok, err := spec.Selections().SelectionFor(patchbay.Name("driver"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, r.Firewire, v, "the original is untouched")
}

func TestMergeCandidates(t *testing.T) {
	r := newRig()
	spec := modelkit.Require(r.Image)

	t.Run("component models merge to the most specific", func(t *testing.T) {
		merged, err := spec.MergeCandidates([]patchbay.Model{r.Camera, r.Firewire})
		require.NoError(t, err)
		assert.Same(t, r.Firewire, merged)
	})

	t.Run("bound services contribute their component", func(t *testing.T) {
		merged, err := spec.MergeCandidates([]patchbay.Model{r.ColorSrv})
		require.NoError(t, err)
		assert.Same(t, r.RGBD, merged)
	})

	t.Run("covered service types add nothing", func(t *testing.T) {
		merged, err := spec.MergeCandidates([]patchbay.Model{r.Firewire, r.Image})
		require.NoError(t, err)
		assert.Same(t, r.Firewire, merged)
	})

	t.Run("uncovered service types force a placeholder", func(t *testing.T) {
		merged, err := spec.MergeCandidates([]patchbay.Model{r.Firewire, r.Depth})
		require.NoError(t, err)
		require.NotNil(t, merged)
		assert.Contains(t, merged.ModelName(), "placeholder(")
		assert.True(t, merged.Fulfills(r.Firewire))
		assert.True(t, merged.Fulfills(r.Depth))
	})

	t.Run("service types alone make a bare placeholder", func(t *testing.T) {
		merged, err := spec.MergeCandidates([]patchbay.Model{r.Image, r.Depth})
		require.NoError(t, err)
		require.NotNil(t, merged)
		assert.Equal(t, "placeholder(ImageSource,DepthSource)", merged.ModelName())
	})

	t.Run("no candidates is no component", func(t *testing.T) {
		merged, err := spec.MergeCandidates(nil)
		require.NoError(t, err)
		assert.Nil(t, merged)
	})

	t.Run("incompatible components fail", func(t *testing.T) {
		_, err := spec.MergeCandidates([]patchbay.Model{r.Firewire, r.Usb})
		var incompatible *modelkit.IncompatibleModelsError
		require.ErrorAs(t, err, &incompatible)
	})

	t.Run("foreign service models fail", func(t *testing.T) {
		_, err := spec.MergeCandidates([]patchbay.Model{foreignService{}})
		require.Error(t, err)
	})
}
