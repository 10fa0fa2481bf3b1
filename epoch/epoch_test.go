package epoch_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-babylon/concurrent/epoch"
	"github.com/go-babylon/concurrent/tlocal"
)

func TestLowWaterMarkWithNoReaders(t *testing.T) {
	e := epoch.New()
	assert.Equal(t, uint64(math.MaxUint64), e.LowWaterMark())
}

func TestEnterStampsCurrentTick(t *testing.T) {
	e := epoch.New()
	e.Tick() // -> 1
	e.Tick() // -> 2

	slot := tlocal.Acquire(true)
	g := e.Enter(slot)
	assert.Equal(t, uint64(2), e.LowWaterMark())

	e.Tick() // a later tick shouldn't retroactively move this reader's stamp
	assert.Equal(t, uint64(2), e.LowWaterMark())

	g.Exit()
	assert.Equal(t, uint64(math.MaxUint64), e.LowWaterMark())
}

func TestLowWaterMarkIsMinimumAcrossReaders(t *testing.T) {
	e := epoch.New()
	e.Tick() // 1

	slotA := tlocal.Acquire(true)
	gA := e.Enter(slotA)
	defer gA.Exit()

	e.Tick() // 2
	slotB := tlocal.Acquire(true)
	gB := e.Enter(slotB)
	defer gB.Exit()

	assert.Equal(t, uint64(1), e.LowWaterMark())

	gA.Exit()
	assert.Equal(t, uint64(2), e.LowWaterMark())
}

func TestTickIsMonotonic(t *testing.T) {
	e := epoch.New()
	a := e.Tick()
	b := e.Tick()
	assert.Greater(t, b, a)
}
