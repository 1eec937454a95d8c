package renderer

import (
	"testing"

	"github.com/spaghettifunk/anima-gfx/engine/renderer/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	kind     driver.ObjectKind
	refs     uint32
	released *[]*fakeObject
}

func (o *fakeObject) AddRef() uint32 {
	o.refs++
	return o.refs
}

func (o *fakeObject) Release() uint32 {
	o.refs--
	if o.refs == 0 && o.released != nil {
		*o.released = append(*o.released, o)
	}
	return o.refs
}

func (o *fakeObject) Kind() driver.ObjectKind { return o.kind }

func TestRegistryRegisterRelease(t *testing.T) {
	r := NewRegistry(true)
	a := &fakeObject{kind: driver.KindBuffer, refs: 1}
	b := &fakeObject{kind: driver.KindSamplerState, refs: 1}
	r.Register(a, "CreateBuffer")
	r.Register(b, "CreateSamplerState")
	assert.Equal(t, 2, r.Count())
	assert.True(t, r.Tracked(a))

	report := r.Report()
	require.Len(t, report, 2)
	assert.Equal(t, "CreateBuffer", report[0].Op)
	assert.Equal(t, driver.KindSamplerState, report[1].Kind)
	assert.NotEqual(t, report[0].Label, report[1].Label)

	r.Release(a)
	assert.Equal(t, uint32(0), a.refs)
	assert.False(t, r.Tracked(a))
	assert.Equal(t, 1, r.Count())
}

func TestRegistryDuplicateAborts(t *testing.T) {
	r := NewRegistry(true)
	a := &fakeObject{kind: driver.KindBuffer, refs: 1}
	r.Register(a, "CreateBuffer")
	requireFatal(t, func() { r.Register(a, "CreateBuffer") })
}

func TestRegistryUntrackedReleaseAborts(t *testing.T) {
	r := NewRegistry(true)
	a := &fakeObject{kind: driver.KindBuffer, refs: 1}
	requireFatal(t, func() { r.Release(a) })
}

func TestRegistryDisabled(t *testing.T) {
	r := NewRegistry(false)
	a := &fakeObject{kind: driver.KindBuffer, refs: 1}
	r.Register(a, "CreateBuffer")
	assert.Equal(t, 0, r.Count())
	r.Release(a)
	assert.Equal(t, uint32(0), a.refs)

	r.SetEnabled(true)
	assert.True(t, r.Enabled())
	b := &fakeObject{kind: driver.KindBuffer, refs: 1}
	r.Register(b, "CreateBuffer")
	assert.Equal(t, 1, r.Count())
}

func TestRegistryEnabledLaterReleasesEarlierObjects(t *testing.T) {
	r := NewRegistry(false)
	a := &fakeObject{kind: driver.KindRasterizerState, refs: 1}
	r.Register(a, "CreateRasterizerState")

	r.SetEnabled(true)
	assert.Equal(t, 0, r.Count())
	assert.NotPanics(t, func() { r.Release(a) })
	assert.Equal(t, uint32(0), a.refs)

	// Forgotten once released, so a second release is a real mistake again.
	requireFatal(t, func() { r.Release(a) })
}

func TestRegistryReleaseAllNewestFirst(t *testing.T) {
	var released []*fakeObject
	r := NewRegistry(true)
	objs := make([]*fakeObject, 4)
	for i := range objs {
		objs[i] = &fakeObject{kind: driver.KindBuffer, refs: 1, released: &released}
		r.Register(objs[i], "CreateBuffer")
	}
	assert.Equal(t, 4, r.ReleaseAll())
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, []*fakeObject{objs[3], objs[2], objs[1], objs[0]}, released)
	assert.Equal(t, 0, r.ReleaseAll())
}
