package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"
)

// LayerPreset is the YAML-facing, pre-validation form of a LayerConfiguration.
// It exists so a preset file can be hand-edited without import-time panics;
// ResolveLayers() is where validation actually happens.
type LayerPreset struct {
	CarrierHz      float64 `yaml:"carrier_hz"`
	ModulatorHz    float64 `yaml:"modulator_hz"`
	ModulatorDepth float64 `yaml:"modulator_depth"`
	Weight         float64 `yaml:"weight"`
	Channel        string  `yaml:"channel"` // "mono" or "stereo"
	StereoOffsetHz float64 `yaml:"stereo_offset_hz"`
	Pan            float64 `yaml:"pan"`
}

// SessionPreset is a declarative, on-disk bundle of layer presets plus the
// engine-level parameters needed to run them. This is the Go-native stand-in
// for the "preset data tables" spec.md calls out-of-scope content: it is
// never read by pkg/engine directly, only converted into the types pkg/engine
// understands.
type SessionPreset struct {
	SampleRate float64       `yaml:"sample_rate"`
	Channel    string        `yaml:"channel"` // "mono" or "stereo", engine-level output mode
	AttackS    float64       `yaml:"attack_s"`
	ReleaseS   float64       `yaml:"release_s"`
	MasterGain float64       `yaml:"master_gain"`
	Layers     []LayerPreset `yaml:"layers"`
}

// DefaultSessionPreset returns a single-layer 440 Hz mono preset at the
// spec's default sample rate and envelope times.
func DefaultSessionPreset() *SessionPreset {
	return &SessionPreset{
		SampleRate: 48000,
		Channel:    "mono",
		AttackS:    10,
		ReleaseS:   30,
		MasterGain: 0.8,
		Layers: []LayerPreset{
			{CarrierHz: 440, ModulatorHz: 0, ModulatorDepth: 0, Weight: 1, Channel: "mono"},
		},
	}
}

// LoadSessionPreset reads and parses a YAML session preset from filePath.
func LoadSessionPreset(filePath string) (*SessionPreset, error) {
	data, err := ioutil.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("config: reading preset file: %w", err)
	}
	preset := &SessionPreset{}
	if err := yaml.Unmarshal(data, preset); err != nil {
		return nil, fmt.Errorf("config: parsing preset file: %w", err)
	}
	return preset, nil
}

// SaveSessionPreset serializes preset as YAML to filePath.
func SaveSessionPreset(preset *SessionPreset, filePath string) error {
	data, err := yaml.Marshal(preset)
	if err != nil {
		return fmt.Errorf("config: serializing preset: %w", err)
	}
	if err := ioutil.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("config: writing preset file: %w", err)
	}
	return nil
}

func parseChannelMode(s string) (ChannelMode, error) {
	switch s {
	case "", "mono":
		return Mono, nil
	case "stereo":
		return Stereo, nil
	default:
		return Mono, fmt.Errorf("config: unknown channel mode %q (want \"mono\" or \"stereo\")", s)
	}
}

// ResolveLayers validates and converts the preset's layer list into
// LayerConfiguration values, and returns the engine-level ChannelMode.
// Validation runs against preset.SampleRate, exactly as it would if the
// caller had built each LayerConfiguration by hand.
func (p *SessionPreset) ResolveLayers() ([]LayerConfiguration, ChannelMode, error) {
	engineMode, err := parseChannelMode(p.Channel)
	if err != nil {
		return nil, Mono, err
	}
	cfgs := make([]LayerConfiguration, 0, len(p.Layers))
	for i, lp := range p.Layers {
		mode, err := parseChannelMode(lp.Channel)
		if err != nil {
			return nil, Mono, fmt.Errorf("config: layer %d: %w", i, err)
		}
		cfg, err := New(lp.CarrierHz, lp.ModulatorHz, lp.ModulatorDepth, lp.Weight, mode, lp.StereoOffsetHz, lp.Pan, p.SampleRate)
		if err != nil {
			return nil, Mono, fmt.Errorf("config: layer %d: %w", i, err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, engineMode, nil
}
