package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"tonalengine/pkg/config"
)

func mustLayer(t *testing.T, carrierHz, modulatorHz, modulatorDepth, weight, pan float64) config.LayerConfiguration {
	t.Helper()
	cfg, err := config.New(carrierHz, modulatorHz, modulatorDepth, weight, config.Mono, 0, pan, 48000)
	require.NoError(t, err)
	return cfg
}

func TestMonoLayerUninitializedProducesSilence(t *testing.T) {
	var layer MonoLayer
	cfg := mustLayer(t, 440, 0, 0, 1, 0)
	block := make([]float32, 100)
	for i := range block {
		block[i] = 7 // poison value to prove it gets cleared
	}
	layer.UpdateAndProcess(block, 48000, cfg)
	for _, s := range block {
		require.Equal(t, float32(0), s)
	}
}

func TestMonoLayerZeroWeightProducesSilence(t *testing.T) {
	var layer MonoLayer
	layer.Initialize(48000, 0.001, 0.001)
	layer.TriggerAttack()
	cfg := mustLayer(t, 440, 0, 0, 0, 0)
	block := make([]float32, 100)
	layer.UpdateAndProcess(block, 48000, cfg)
	for _, s := range block {
		require.Equal(t, float32(0), s)
	}
}

func TestMonoLayerOutputNeverExceedsWeightPlusEpsilon(t *testing.T) {
	var layer MonoLayer
	layer.Initialize(48000, 0.001, 0.001)
	layer.TriggerAttack()
	cfg := mustLayer(t, 440, 5, 1.0, 0.8, 0)
	block := make([]float32, 4000)
	const eps = 1e-3
	for n := 0; n < 12; n++ {
		layer.UpdateAndProcess(block, 48000, cfg)
		for i, s := range block {
			require.False(t, math.IsNaN(float64(s)), "sample %d is NaN", i)
			require.LessOrEqual(t, math.Abs(float64(s)), 0.8+eps)
		}
	}
}

func TestMonoLayerReleaseFadesTowardSilence(t *testing.T) {
	var layer MonoLayer
	layer.Initialize(48000, 0.01, 0.01)
	cfg := mustLayer(t, 440, 0, 0, 1, 0)
	layer.TriggerAttack()
	block := make([]float32, 48000)
	layer.UpdateAndProcess(block, 48000, cfg)
	require.Greater(t, layer.EnvelopeValue(), 0.9)

	layer.TriggerRelease()
	tail := make([]float32, 48000)
	layer.UpdateAndProcess(tail, 48000, cfg)
	require.Less(t, layer.EnvelopeValue(), 0.1)
}

func TestMonoLayerKeepsReleasingAcrossManyCallsWithoutReTriggering(t *testing.T) {
	// UpdateAndProcess must not silently re-trigger the attack on every
	// call: once TriggerRelease has been called, the envelope must keep
	// decaying across any number of subsequent renders.
	var layer MonoLayer
	layer.Initialize(48000, 0.01, 0.01)
	cfg := mustLayer(t, 440, 0, 0, 1, 0)
	layer.TriggerAttack()
	layer.UpdateAndProcess(make([]float32, 48000), 48000, cfg)
	require.Greater(t, layer.EnvelopeValue(), 0.9)

	layer.TriggerRelease()
	for i := 0; i < 10; i++ {
		layer.UpdateAndProcess(make([]float32, 4800), 48000, cfg)
	}
	require.Less(t, layer.EnvelopeValue(), 0.1)
}

func TestMonoLayerResetClearsDSPStateNotInitializedFlag(t *testing.T) {
	var layer MonoLayer
	layer.Initialize(48000, 0.01, 0.01)
	cfg := mustLayer(t, 440, 0, 0, 1, 0)
	layer.TriggerAttack()
	layer.UpdateAndProcess(make([]float32, 1000), 48000, cfg)
	layer.Reset()
	require.Equal(t, 0.0, layer.EnvelopeValue())

	layer.TriggerAttack()
	block := make([]float32, 4800)
	layer.UpdateAndProcess(block, 48000, cfg)
	allZero := true
	for _, s := range block {
		if s != 0 {
			allZero = false
		}
	}
	require.False(t, allZero, "layer should still render after Reset since initialized stays true")
}
