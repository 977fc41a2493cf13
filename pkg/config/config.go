// Package config defines the immutable per-layer configuration consumed by
// the tonal engine, and a YAML-backed preset format used to drive it from
// the command line. Nothing in this package runs on the audio thread.
package config

import "fmt"

// ChannelMode selects whether a layer is rendered to one or two channels.
type ChannelMode int

const (
	// Mono renders the layer's carrier to a single channel.
	Mono ChannelMode = iota
	// Stereo renders left/right carriers offset by StereoOffsetHz.
	Stereo
)

func (m ChannelMode) String() string {
	switch m {
	case Mono:
		return "mono"
	case Stereo:
		return "stereo"
	default:
		return "unknown"
	}
}

// Carrier and modulation ranges, per spec.
const (
	MinCarrierHz   = 20.0
	MaxCarrierHz   = 2000.0
	NyquistGuard   = 0.45 // carrier must stay below NyquistGuard * sampleRate
	MinModulatorHz = 0.1
	MaxModulatorHz = 100.0
)

// InvalidConfigurationError reports that a LayerConfiguration field failed
// validation. Field names the offending field; it is informational only.
type InvalidConfigurationError struct {
	Field string
	Value float64
	Msg   string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration field %q (value=%g): %s", e.Field, e.Value, e.Msg)
}

// LayerConfiguration is an immutable, freely-copyable description of one
// layer's sound. Construct with New, which validates every field; zero
// values of this struct are never passed to the engine directly.
type LayerConfiguration struct {
	carrierHz      float64
	modulatorHz    float64
	modulatorDepth float64
	weight         float64
	channelMode    ChannelMode
	stereoOffsetHz float64
	pan            float64
}

// New validates and builds a LayerConfiguration. sampleRate is the engine's
// sample rate and is used only for the Nyquist guard; configurations built
// here are re-validated against the engine's actual sample rate again at
// Initialize/UpdateConfigs time, since the two rates may differ.
func New(carrierHz, modulatorHz, modulatorDepth, weight float64, mode ChannelMode, stereoOffsetHz, pan float64, sampleRate float64) (LayerConfiguration, error) {
	cfg := LayerConfiguration{
		carrierHz:      carrierHz,
		modulatorHz:    modulatorHz,
		modulatorDepth: modulatorDepth,
		weight:         weight,
		channelMode:    mode,
		stereoOffsetHz: stereoOffsetHz,
		pan:            pan,
	}
	if err := cfg.Validate(sampleRate); err != nil {
		return LayerConfiguration{}, err
	}
	return cfg, nil
}

// Validate re-checks every field against sampleRate. Called both by New and
// by the engine whenever a configuration crosses into engine scope (see
// spec.md §9, "Nyquist guard").
func (c LayerConfiguration) Validate(sampleRate float64) error {
	if c.carrierHz < MinCarrierHz || c.carrierHz > MaxCarrierHz {
		return &InvalidConfigurationError{Field: "carrier_hz", Value: c.carrierHz, Msg: "must be within [20, 2000] Hz"}
	}
	if c.carrierHz >= NyquistGuard*sampleRate {
		return &InvalidConfigurationError{Field: "carrier_hz", Value: c.carrierHz, Msg: "must be below 0.45*sample_rate"}
	}
	if c.modulatorHz != 0 && (c.modulatorHz < MinModulatorHz || c.modulatorHz > MaxModulatorHz) {
		return &InvalidConfigurationError{Field: "modulator_hz", Value: c.modulatorHz, Msg: "must be 0 or within [0.1, 100] Hz"}
	}
	if c.modulatorDepth < 0 || c.modulatorDepth > 1 {
		return &InvalidConfigurationError{Field: "modulator_depth", Value: c.modulatorDepth, Msg: "must be within [0, 1]"}
	}
	if c.weight < 0 || c.weight > 1 {
		return &InvalidConfigurationError{Field: "weight", Value: c.weight, Msg: "must be within [0, 1]"}
	}
	if c.pan < -1 || c.pan > 1 {
		return &InvalidConfigurationError{Field: "pan", Value: c.pan, Msg: "must be within [-1, 1]"}
	}
	if c.channelMode == Stereo {
		offsetCarrier := c.carrierHz + c.stereoOffsetHz
		if offsetCarrier < MinCarrierHz || offsetCarrier > MaxCarrierHz {
			return &InvalidConfigurationError{Field: "stereo_offset_hz", Value: c.stereoOffsetHz, Msg: "carrier_hz + stereo_offset_hz must be within [20, 2000] Hz"}
		}
		if offsetCarrier >= NyquistGuard*sampleRate {
			return &InvalidConfigurationError{Field: "stereo_offset_hz", Value: c.stereoOffsetHz, Msg: "carrier_hz + stereo_offset_hz must be below 0.45*sample_rate"}
		}
	}
	return nil
}

// CarrierHz returns the audible carrier frequency.
func (c LayerConfiguration) CarrierHz() float64 { return c.carrierHz }

// ModulatorHz returns the LFO rate; 0 means no modulation.
func (c LayerConfiguration) ModulatorHz() float64 { return c.modulatorHz }

// ModulatorDepth returns the AM depth in [0, 1].
func (c LayerConfiguration) ModulatorDepth() float64 { return c.modulatorDepth }

// Weight returns the layer's mix weight in [0, 1].
func (c LayerConfiguration) Weight() float64 { return c.weight }

// ChannelMode returns Mono or Stereo.
func (c LayerConfiguration) ChannelMode() ChannelMode { return c.channelMode }

// StereoOffsetHz returns the right-channel frequency offset (Stereo only).
func (c LayerConfiguration) StereoOffsetHz() float64 { return c.stereoOffsetHz }

// Pan returns the equal-power pan position in [-1, 1] (mono-in-stereo only).
func (c LayerConfiguration) Pan() float64 { return c.pan }

// Unsafe rebuilds cfg with a different carrier frequency, bypassing
// validation. It exists only for pkg/engine's StereoLayer, which needs to
// render its right channel at carrierHz+stereoOffsetHz — a frequency whose
// validity was already checked (against the Nyquist guard too) when cfg
// was constructed. Not exported for use outside this module's own engine
// package in spirit, though Go's visibility rules can't express that.
func Unsafe(cfg LayerConfiguration, carrierHz float64) LayerConfiguration {
	cfg.carrierHz = carrierHz
	return cfg
}

// MaxLayers is the maximum number of layers a single snapshot may hold.
const MaxLayers = 8

// LayerSnapshot is an ordered, bounded, immutable sequence of layer
// configurations. Once returned by NewSnapshot it is never mutated; publish
// a new one to change layers.
type LayerSnapshot struct {
	layers []LayerConfiguration
}

// NewSnapshot copies cfgs into a fresh immutable snapshot. Returns an error
// if cfgs is empty or exceeds MaxLayers.
func NewSnapshot(cfgs []LayerConfiguration) (LayerSnapshot, error) {
	if len(cfgs) == 0 {
		return LayerSnapshot{}, fmt.Errorf("config: snapshot must contain at least one layer")
	}
	if len(cfgs) > MaxLayers {
		return LayerSnapshot{}, fmt.Errorf("config: snapshot has %d layers, exceeds MaxLayers=%d", len(cfgs), MaxLayers)
	}
	copied := make([]LayerConfiguration, len(cfgs))
	copy(copied, cfgs)
	return LayerSnapshot{layers: copied}, nil
}

// Layers returns the snapshot's layers. The returned slice must not be
// mutated by the caller; it is shared with the snapshot's internal state.
func (s LayerSnapshot) Layers() []LayerConfiguration { return s.layers }

// Len returns the number of layers in the snapshot.
func (s LayerSnapshot) Len() int { return len(s.layers) }
