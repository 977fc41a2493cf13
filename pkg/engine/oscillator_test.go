package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSineOscillatorBoundedOutput(t *testing.T) {
	var osc SineOscillator
	osc.SetFrequency(440, 48000)
	block := make([]float32, 4096)
	osc.Process(block)
	for i, s := range block {
		require.False(t, math.IsNaN(float64(s)), "sample %d is NaN", i)
		require.False(t, math.IsInf(float64(s), 0), "sample %d is Inf", i)
		require.LessOrEqual(t, s, float32(1.0))
		require.GreaterOrEqual(t, s, float32(-1.0))
	}
}

func TestSineOscillatorPhaseContinuityAcrossBlocks(t *testing.T) {
	var whole SineOscillator
	whole.SetFrequency(300, 48000)
	refBlock := make([]float32, 200)
	whole.Process(refBlock)

	var split SineOscillator
	split.SetFrequency(300, 48000)
	a := make([]float32, 100)
	b := make([]float32, 100)
	split.Process(a)
	split.Process(b)

	for i := 0; i < 100; i++ {
		require.InDelta(t, refBlock[i], a[i], 1e-6)
		require.InDelta(t, refBlock[100+i], b[i], 1e-6)
	}
}

func TestSineOscillatorDeterministic(t *testing.T) {
	var o1, o2 SineOscillator
	o1.SetFrequency(523.25, 44100)
	o2.SetFrequency(523.25, 44100)
	b1 := make([]float32, 1000)
	b2 := make([]float32, 1000)
	o1.Process(b1)
	o2.Process(b2)
	require.Equal(t, b1, b2)
}

func TestSineOscillatorResetReturnsToPhaseZero(t *testing.T) {
	var osc SineOscillator
	osc.SetFrequency(440, 48000)
	block := make([]float32, 500)
	osc.Process(block)
	osc.Reset()

	var fresh SineOscillator
	fresh.SetFrequency(440, 48000)
	first := make([]float32, 10)
	osc.Process(first)
	fresh.Process(make([]float32, 10))
	want := make([]float32, 10)
	fresh2 := SineOscillator{}
	fresh2.SetFrequency(440, 48000)
	fresh2.Process(want)
	require.Equal(t, want, first)
}

func TestWrapPhaseStaysInRange(t *testing.T) {
	for _, p := range []float64{-100, -0.1, 0, 0.1, twoPi, twoPi * 50, -twoPi * 50} {
		wrapped := wrapPhase(p)
		require.GreaterOrEqual(t, wrapped, 0.0)
		require.Less(t, wrapped, twoPi)
	}
}
