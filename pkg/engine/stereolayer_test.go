package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tonalengine/pkg/config"
)

func mustStereoLayerCfg(t *testing.T, carrierHz, stereoOffsetHz float64) config.LayerConfiguration {
	t.Helper()
	cfg, err := config.New(carrierHz, 0, 0, 1, config.Stereo, stereoOffsetHz, 0, 48000)
	require.NoError(t, err)
	return cfg
}

func TestStereoLayerChannelsDifferOnlyByCarrier(t *testing.T) {
	var layer StereoLayer
	layer.Initialize(48000, 0.001, 0.001)
	layer.TriggerAttack()
	cfg := mustStereoLayerCfg(t, 200, 4)

	left := make([]float32, 2048)
	right := make([]float32, 2048)
	layer.UpdateAndProcess(left, right, 48000, cfg)

	// Different carrier frequencies (200 vs 204 Hz) must diverge somewhere
	// in a 2048-sample block, while both channels carry the same envelope
	// gain, so the difference comes from the carrier and not from amplitude.
	identical := true
	for i := range left {
		if left[i] != right[i] {
			identical = false
			break
		}
	}
	require.False(t, identical)
	require.Equal(t, layer.left.EnvelopeValue(), layer.right.EnvelopeValue())
}

func TestStereoLayerZeroOffsetStillRunsIndependentOscillators(t *testing.T) {
	var layer StereoLayer
	layer.Initialize(48000, 0.001, 0.001)
	layer.TriggerAttack()
	cfg := mustStereoLayerCfg(t, 200, 0)

	left := make([]float32, 512)
	right := make([]float32, 512)
	layer.UpdateAndProcess(left, right, 48000, cfg)
	require.Equal(t, left, right) // identical carrier frequency -> identical phase trajectory
}

func TestStereoLayerEnvelopeValueTracksLeftChannel(t *testing.T) {
	var layer StereoLayer
	layer.Initialize(48000, 0.01, 0.01)
	layer.TriggerAttack()
	cfg := mustStereoLayerCfg(t, 200, 5)
	layer.UpdateAndProcess(make([]float32, 48000), make([]float32, 48000), 48000, cfg)
	require.Greater(t, layer.EnvelopeValue(), 0.9)
}

func TestStereoLayerResetClearsBothChannels(t *testing.T) {
	var layer StereoLayer
	layer.Initialize(48000, 0.01, 0.01)
	layer.TriggerAttack()
	cfg := mustStereoLayerCfg(t, 200, 5)
	layer.UpdateAndProcess(make([]float32, 1000), make([]float32, 1000), 48000, cfg)
	layer.Reset()
	require.Equal(t, 0.0, layer.EnvelopeValue())
	require.Equal(t, 0.0, layer.right.EnvelopeValue())
}
