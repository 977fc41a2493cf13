package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmModulatorZeroDepthIsNoOp(t *testing.T) {
	carrier := []float32{0.5, -0.5, 1.0, -1.0}
	orig := append([]float32{}, carrier...)
	var mod AmModulator
	modBlock := []float32{1, -1, 0.5, -0.5}
	mod.Apply(carrier, modBlock, 0)
	require.Equal(t, orig, carrier)
}

func TestAmModulatorFullDepthNeverExceedsPeak(t *testing.T) {
	carrier := make([]float32, 100)
	modBlock := make([]float32, 100)
	for i := range carrier {
		carrier[i] = 0.5
		modBlock[i] = 1 // peak of modulator
	}
	var mod AmModulator
	mod.Apply(carrier, modBlock, 1.0)
	for _, s := range carrier {
		require.LessOrEqual(t, s, float32(0.5001))
	}
}

func TestAmModulatorDepthClampedAboveOne(t *testing.T) {
	carrierA := []float32{0.5, 0.5}
	carrierB := []float32{0.5, 0.5}
	modBlock := []float32{-1, 1}
	var mod AmModulator
	mod.Apply(carrierA, modBlock, 1.0)
	mod.Apply(carrierB, modBlock, 5.0)
	require.Equal(t, carrierA, carrierB)
}

func TestAmModulatorTroughNeverGoesNegativeForPositiveCarrier(t *testing.T) {
	carrier := []float32{0.5}
	modBlock := []float32{-1} // trough of modulator -> amplitude = 1-depth
	var mod AmModulator
	mod.Apply(carrier, modBlock, 0.5)
	require.InDelta(t, 0.25, carrier[0], 1e-6) // (1-0.5)*0.5
}

func TestAmModulatorHandlesMismatchedLengths(t *testing.T) {
	carrier := make([]float32, 10)
	for i := range carrier {
		carrier[i] = 1
	}
	modBlock := make([]float32, 5)
	var mod AmModulator
	require.NotPanics(t, func() {
		mod.Apply(carrier, modBlock, 0.5)
	})
}
