package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLFOBoundedOutput(t *testing.T) {
	var lfo LFO
	lfo.SetFrequency(5, 48000)
	block := make([]float32, 4096)
	lfo.Process(block)
	for i, s := range block {
		require.False(t, math.IsNaN(float64(s)), "sample %d is NaN", i)
		require.LessOrEqual(t, s, float32(1.0))
		require.GreaterOrEqual(t, s, float32(-1.0))
	}
}

func TestLFONoFlatRunAtStart(t *testing.T) {
	// The first ControlRate samples must not be a run of identical values;
	// priming must seed two distinct control-rate samples before the first
	// Process call ever interpolates.
	var lfo LFO
	lfo.SetFrequency(5, 48000)
	block := make([]float32, ControlRate*2)
	lfo.Process(block)

	allSame := true
	for i := 1; i < ControlRate; i++ {
		if block[i] != block[0] {
			allSame = false
			break
		}
	}
	require.False(t, allSame, "first control-rate segment must not be flat")
}

func TestLFOInterpolatesBetweenControlRateSamples(t *testing.T) {
	var lfo LFO
	lfo.SetFrequency(1, 48000)
	block := make([]float32, ControlRate)
	lfo.Process(block)

	for i := 1; i < len(block); i++ {
		require.NotEqual(t, block[i-1], block[i], "sample %d should differ from %d under linear interpolation", i, i-1)
	}
}

func TestLFOResetReturnsToUnprimedState(t *testing.T) {
	var lfo LFO
	lfo.SetFrequency(3, 48000)
	lfo.Process(make([]float32, 100))
	lfo.Reset()
	require.False(t, lfo.primed)
	require.Equal(t, 0.0, lfo.phase)
}

func TestLFODeterministic(t *testing.T) {
	var l1, l2 LFO
	l1.SetFrequency(7.5, 48000)
	l2.SetFrequency(7.5, 48000)
	b1 := make([]float32, 1000)
	b2 := make([]float32, 1000)
	l1.Process(b1)
	l2.Process(b2)
	require.Equal(t, b1, b2)
}
