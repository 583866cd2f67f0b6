package world

import (
	"sync"
	"testing"

	"github.com/bonvoyage/voyage/internal/resource"
	"github.com/bonvoyage/voyage/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Bodies(t *testing.T) {
	ctx := NewContext()

	_, ok := ctx.Body("Kerbin")
	assert.False(t, ok)
	assert.Nil(t, ctx.Sun("Kerbin"))

	ctx.SetBody(core.Body{Name: "Kerbin", Radius: 600000, RotationPeriod: 21549.425}, nil)
	b, ok := ctx.Body("Kerbin")
	require.True(t, ok)
	assert.Equal(t, 600000.0, b.Radius)
	assert.Equal(t, resource.RotatingSun{RotationPeriod: 21549.425}, ctx.Sun("Kerbin"))

	ctx.SetBody(core.Body{Name: "Kerbin", Radius: 600000}, resource.FixedSun(0))
	assert.Equal(t, resource.FixedSun(0), ctx.Sun("Kerbin"))

	// a later registration without a sun keeps the installed model
	ctx.SetBody(core.Body{Name: "Kerbin", Radius: 600000}, nil)
	assert.Equal(t, resource.FixedSun(0), ctx.Sun("Kerbin"))
	assert.Len(t, ctx.Bodies(), 1)
}

func TestContext_RotationPeriodChangeRebuildsSun(t *testing.T) {
	ctx := NewContext()
	ctx.SetBody(core.Body{Name: "Mun", Radius: 200000, RotationPeriod: 1000}, resource.RotatingSun{
		SubsolarLatitude: 5, SubsolarLongitudeAtEpoch: 30, RotationPeriod: 1000,
	})

	ctx.SetBody(core.Body{Name: "Mun", Radius: 200000, RotationPeriod: 138984.38}, nil)
	assert.Equal(t, resource.RotatingSun{
		SubsolarLatitude: 5, SubsolarLongitudeAtEpoch: 30, RotationPeriod: 138984.38,
	}, ctx.Sun("Mun"))
}

func TestContext_ActiveVesselIsCopied(t *testing.T) {
	ctx := NewContext()
	assert.Nil(t, ctx.ActiveVessel())

	v := &ActiveVessel{ID: "a", Body: "Kerbin", Latitude: 1}
	ctx.SetActiveVessel(v)
	v.Latitude = 5

	got := ctx.ActiveVessel()
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Latitude)

	got.Latitude = 9
	assert.Equal(t, 1.0, ctx.ActiveVessel().Latitude)

	ctx.SetActiveVessel(nil)
	assert.Nil(t, ctx.ActiveVessel())
}

func TestContext_ThreadSafe(t *testing.T) {
	ctx := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ctx.SetPaused(i%2 == 0)
			ctx.SetActiveVessel(&ActiveVessel{ID: "v"})
		}(i)
		go func() {
			defer wg.Done()
			_ = ctx.Paused()
			_ = ctx.ActiveVessel()
		}()
	}
	wg.Wait()
}
