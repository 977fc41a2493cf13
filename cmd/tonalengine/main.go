package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"tonalengine/internal/logger"
	"tonalengine/pkg/config"
	"tonalengine/pkg/engine"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage:\n  %s play <preset.yaml>\n  %s render <preset.yaml> <out.wav> <seconds>\n", os.Args[0], os.Args[0])
	}
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}

	lg := logger.NewLogger("info")

	var err error
	switch args[0] {
	case "play":
		err = runPlay(args[1], lg)
	case "render":
		if len(args) < 4 {
			flag.Usage()
			os.Exit(2)
		}
		err = runRender(args[1], args[2], args[3], lg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		lg.Fatalf("%v", err)
	}
}

func buildEngine(presetPath string, log *logger.Logger) (*engine.AudioEngine, *config.SessionPreset, error) {
	preset, err := config.LoadSessionPreset(presetPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading preset: %w", err)
	}
	layers, mode, err := preset.ResolveLayers()
	if err != nil {
		return nil, nil, fmt.Errorf("converting preset: %w", err)
	}

	e, err := engine.New(preset.SampleRate, log)
	if err != nil {
		return nil, nil, fmt.Errorf("constructing engine: %w", err)
	}
	if err := e.Initialize(layers, mode, preset.AttackS, preset.ReleaseS); err != nil {
		return nil, nil, fmt.Errorf("initializing engine: %w", err)
	}
	if preset.MasterGain > 0 {
		e.SetMasterGain(preset.MasterGain)
	} else {
		e.SetMasterGain(1)
	}
	return e, preset, nil
}

// runPlay opens a realtime PortAudio stream driven by the engine and blocks
// until interrupted, polling for a latched critical error once per second.
func runPlay(presetPath string, log *logger.Logger) error {
	e, preset, err := buildEngine(presetPath, log)
	if err != nil {
		return err
	}
	defer e.Dispose()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 512

	var stream *portaudio.Stream
	switch preset.Channel {
	case "stereo":
		// The callbacks do nothing but fill the buffer: no logging on the audio
		// thread. A failed call leaves the buffer silent; latched faults are
		// picked up by the polling loop below.
		stream, err = portaudio.OpenDefaultStream(0, 2, preset.SampleRate, framesPerBuffer, func(out [][]float32) {
			_ = e.FillStereoBuffer(out[0], out[1])
		})
	default:
		stream, err = portaudio.OpenDefaultStream(0, 1, preset.SampleRate, framesPerBuffer, func(out []float32) {
			_ = e.FillMonoBuffer(out)
		})
	}
	if err != nil {
		return fmt.Errorf("opening audio stream: %w", err)
	}
	defer stream.Close()

	if err := e.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("starting audio stream: %w", err)
	}
	defer stream.Stop()

	log.Infof("playing %s (%d layer(s), %s, sr=%g)", presetPath, mustLayerCount(preset), preset.Channel, preset.SampleRate)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for range ticker.C {
		if engErr, critical := e.TryGetCriticalError(); critical {
			return fmt.Errorf("engine latched a critical error: %v", engErr)
		}
	}
	return nil
}

// runRender performs a synchronous offline render of durationS seconds to a
// WAV file, entirely off the realtime audio path.
func runRender(presetPath, outPath, durationS string, log *logger.Logger) error {
	seconds, err := time.ParseDuration(durationS + "s")
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", durationS, err)
	}

	e, preset, err := buildEngine(presetPath, log)
	if err != nil {
		return err
	}
	defer e.Dispose()

	if err := e.Start(); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer f.Close()

	numChannels := 1
	if preset.Channel == "stereo" {
		numChannels = 2
	}
	enc := wav.NewEncoder(f, int(preset.SampleRate), 16, numChannels, 1)
	defer enc.Close()

	const blockSize = 1024
	totalFrames := int(seconds.Seconds() * preset.SampleRate)
	intBuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: int(preset.SampleRate)},
		Data:           make([]int, blockSize*numChannels),
		SourceBitDepth: 16,
	}

	left := make([]float32, blockSize)
	right := make([]float32, blockSize)

	for rendered := 0; rendered < totalFrames; rendered += blockSize {
		n := blockSize
		if rendered+n > totalFrames {
			n = totalFrames - rendered
		}

		if numChannels == 2 {
			if err := e.FillStereoBuffer(left[:n], right[:n]); err != nil {
				return fmt.Errorf("rendering: %w", err)
			}
			for i := 0; i < n; i++ {
				intBuf.Data[2*i] = floatToPCM16(left[i])
				intBuf.Data[2*i+1] = floatToPCM16(right[i])
			}
		} else {
			if err := e.FillMonoBuffer(left[:n]); err != nil {
				return fmt.Errorf("rendering: %w", err)
			}
			for i := 0; i < n; i++ {
				intBuf.Data[i] = floatToPCM16(left[i])
			}
		}

		intBuf.Data = intBuf.Data[:n*numChannels]
		if err := enc.Write(intBuf); err != nil {
			return fmt.Errorf("writing wav: %w", err)
		}
		intBuf.Data = intBuf.Data[:cap(intBuf.Data)]

		if _, critical := e.TryGetCriticalError(); critical {
			return fmt.Errorf("engine latched a critical error during render")
		}
	}

	log.Infof("rendered %s -> %s (%s)", presetPath, outPath, seconds)
	return nil
}

func floatToPCM16(s float32) int {
	v := int(s * 32767)
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return v
}

func mustLayerCount(preset *config.SessionPreset) int {
	return len(preset.Layers)
}
