package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"tonalengine/internal/logger"
	"tonalengine/internal/util"
	"tonalengine/pkg/config"
)

// engineState is the AudioEngine's lifecycle state, per spec.md §4.8.
type engineState int32

const (
	stateUninitialized engineState = iota
	stateInitialized
	statePlaying
	stateStopped
	stateDisposed
)

// AudioEngine is the public façade: initialize, update configs (lock-free),
// start/stop, fill buffer, master-gain smoothing, a hard safety clamp, a
// consecutive-error guard, and asynchronous critical-error notification.
//
// Concurrency discipline (spec.md §5): the control thread calls
// Initialize/UpdateConfigs/SetMasterGain/Start/Stop/Reset/Dispose. The audio
// thread calls FillMonoBuffer/FillStereoBuffer and nothing else touches the
// engine's DSP state (mixer, layers, oscillators, envelopes) after
// Initialize. The snapshot cell, the dirty flag, the master-gain target,
// and the error slot are all atomics so neither thread ever blocks on the
// other.
type AudioEngine struct {
	sampleRate  float64
	channelMode config.ChannelMode
	attackS     float64
	releaseS    float64

	state atomic.Int32

	snapshot     atomic.Pointer[config.LayerSnapshot]
	configDirty  atomic.Bool
	lastSnapshot config.LayerSnapshot // audio-thread-only cache of the snapshot in effect

	masterGainTarget atomic.Uint32 // float32 bits
	smoothedGain     float64       // audio-thread-only
	outputGain       atomic.Uint32 // float32 bits, clamped to [0,1]

	consecutiveErrors atomic.Int32
	lastError         atomic.Pointer[EngineError]
	hasCriticalError  atomic.Bool

	notifications chan EngineError

	mixer Mixer

	log *logger.Logger

	disposeOnce sync.Once
}

// masterGainSlew is the per-sample smoothing coefficient: smoothed +=
// (target-smoothed)*slew, yielding ~100ms settling at 48kHz per spec.md §5.
const masterGainSlew = 0.001

// New constructs an AudioEngine for the given sample rate. sampleRate must
// be within [MinSampleRate, MaxSampleRate]; a zero value selects SRDefault.
// log may be nil.
func New(sampleRate float64, log *logger.Logger) (*AudioEngine, error) {
	if sampleRate == 0 {
		sampleRate = SRDefault
	}
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return nil, newError(KindInvalidSampleRate, "sample rate outside [8000, 192000]")
	}
	e := &AudioEngine{
		sampleRate:    sampleRate,
		log:           log,
		notifications: make(chan EngineError, 8),
	}
	e.state.Store(int32(stateUninitialized))
	e.setOutputGainLocked(1)
	e.setMasterGainTargetLocked(1)
	return e, nil
}

func (e *AudioEngine) setOutputGainLocked(v float64)      { e.outputGain.Store(float32bits(v)) }
func (e *AudioEngine) setMasterGainTargetLocked(v float64) { e.masterGainTarget.Store(float32bits(v)) }

// Initialize validates configs, builds the Mixer's layer pool, and
// publishes configs as the first snapshot. Must be called exactly once,
// before the first Start.
func (e *AudioEngine) Initialize(configs []config.LayerConfiguration, mode config.ChannelMode, attackS, releaseS float64) error {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	if attackS <= 0 {
		attackS = DefaultAttackS
	}
	if releaseS <= 0 {
		releaseS = DefaultReleaseS
	}
	if err := e.validateConfigs(configs); err != nil {
		return err
	}

	snap, err := config.NewSnapshot(configs)
	if err != nil {
		return newError(KindInvalidConfiguration, err.Error())
	}

	if err := e.mixer.Initialize(len(configs), e.sampleRate, mode, attackS, releaseS); err != nil {
		return err
	}

	e.channelMode = mode
	e.attackS = attackS
	e.releaseS = releaseS
	e.snapshot.Store(&snap)
	e.lastSnapshot = snap
	e.configDirty.Store(false)
	e.state.Store(int32(stateInitialized))

	if e.log != nil {
		e.log.Infof("engine initialized: %d layer(s), mode=%s, sr=%g", len(configs), mode, e.sampleRate)
	}
	return nil
}

// validateConfigs re-runs each configuration's validation against this
// engine's actual sample rate (which may differ from whatever sample rate
// was assumed when the configuration was first constructed; see spec.md
// §9's Nyquist-guard note).
func (e *AudioEngine) validateConfigs(configs []config.LayerConfiguration) error {
	if len(configs) == 0 {
		return newError(KindInvalidConfiguration, "configuration list must not be empty")
	}
	if len(configs) > config.MaxLayers {
		return newError(KindInvalidConfiguration, "configuration list exceeds MaxLayers")
	}
	for _, cfg := range configs {
		if err := cfg.Validate(e.sampleRate); err != nil {
			return newFieldError(KindInvalidConfiguration, fieldOf(err), err.Error())
		}
	}
	return nil
}

func fieldOf(err error) string {
	if ice, ok := err.(*config.InvalidConfigurationError); ok {
		return ice.Field
	}
	return ""
}

// UpdateConfigs validates configs, builds a fresh immutable snapshot, and
// atomically replaces the published snapshot. Lock-free; safe to call from
// the control thread at any time, including while audio is playing.
func (e *AudioEngine) UpdateConfigs(configs []config.LayerConfiguration) error {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	if err := e.validateConfigs(configs); err != nil {
		return err
	}
	snap, err := config.NewSnapshot(configs)
	if err != nil {
		return newError(KindInvalidConfiguration, err.Error())
	}
	e.snapshot.Store(&snap)
	e.configDirty.Store(true)
	return nil
}

// SetMasterGain clamps v to [0, 1] and stores it as the smoothing target.
// Applied in-callback via the slew smoother, never instantaneously.
func (e *AudioEngine) SetMasterGain(v float64) {
	v = util.Clamp(v, 0, 1)
	e.masterGainTarget.Store(float32bits(v))
}

// SetOutputGain sets the final linear multiplier applied after smoothing
// and the safety clamp, clamped to [0, 1].
func (e *AudioEngine) SetOutputGain(v float64) {
	v = util.Clamp(v, 0, 1)
	e.outputGain.Store(float32bits(v))
}

// OutputGain returns the currently configured output gain.
func (e *AudioEngine) OutputGain() float64 {
	return float64(float32frombits(e.outputGain.Load()))
}

// Start transitions Initialized -> Playing. Errors if the engine has not
// been initialized.
func (e *AudioEngine) Start() error {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	st := engineState(e.state.Load())
	if (st != stateInitialized && st != stateStopped) || !e.mixer.initialized {
		return newError(KindNotInitialized, "Start called before Initialize")
	}
	e.mixer.TriggerAttackAll()
	e.state.Store(int32(statePlaying))
	if e.log != nil {
		e.log.Info("engine started")
	}
	return nil
}

// Stop triggers a release on every active layer and transitions to Stopped.
// This is not a cancellation: FillBuffer keeps rendering the release tail
// until it completes.
func (e *AudioEngine) Stop() error {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	e.mixer.TriggerReleaseAll()
	e.state.Store(int32(stateStopped))
	if e.log != nil {
		e.log.Info("engine stopped, release tail in progress")
	}
	return nil
}

// Reset clears layer DSP state (oscillators, LFOs, envelopes) but does not
// release any resource acquired by Initialize; call only while not Playing.
func (e *AudioEngine) Reset() error {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	e.mixer.Reset()
	e.consecutiveErrors.Store(0)
	e.hasCriticalError.Store(false)
	e.lastError.Store(nil)
	return nil
}

// Dispose immediately forbids further FillBuffer calls and releases owned
// resources. Idempotent.
func (e *AudioEngine) Dispose() {
	e.disposeOnce.Do(func() {
		e.state.Store(int32(stateDisposed))
		close(e.notifications)
		if e.log != nil {
			e.log.Info("engine disposed")
		}
	})
}

func (e *AudioEngine) isDisposed() bool {
	return engineState(e.state.Load()) == stateDisposed
}

// Notifications returns the channel on which critical-error notifications
// are delivered. Delivery happens from a background goroutine spawned off
// the audio thread; subscribers must tolerate being invoked on an
// unspecified thread.
func (e *AudioEngine) Notifications() <-chan EngineError {
	return e.notifications
}

// TryGetCriticalError returns the last stored error (nil if none) and
// whether the engine has latched into the critical-error state.
func (e *AudioEngine) TryGetCriticalError() (*EngineError, bool) {
	return e.lastError.Load(), e.hasCriticalError.Load()
}

// LayerEnvelopeValue is a bounds-safe metering accessor; returns 0 if
// uninitialized or out of range.
func (e *AudioEngine) LayerEnvelopeValue(i int) float64 {
	if engineState(e.state.Load()) == stateUninitialized {
		return 0
	}
	return e.mixer.LayerEnvelopeValue(i)
}

// SampleRate returns the engine's immutable sample rate.
func (e *AudioEngine) SampleRate() float64 { return e.sampleRate }

// ChannelMode returns the engine's output channel mode.
func (e *AudioEngine) ChannelMode() config.ChannelMode { return e.channelMode }

// FillMonoBuffer is the mono hard-realtime entry point: no allocation, no
// locking, no I/O, bounded time proportional to len(block) and layer count.
// Rendering continues in both Playing and Stopped state, since Stop is not
// a cancellation: it only triggers a release on every layer, and the
// mixer must keep running so that release tail can actually decay (see
// spec.md §3, §4.8, §5). Only Uninitialized/Initialized produce silence.
func (e *AudioEngine) FillMonoBuffer(block []float32) error {
	if err := e.precheck(config.Mono, len(block), len(block)); err != nil {
		clearBlock(block)
		return err
	}
	st := engineState(e.state.Load())
	if st != statePlaying && st != stateStopped {
		clearBlock(block)
		return nil
	}

	configs := e.currentConfigs()
	if err := e.mixer.RenderMono(block, e.sampleRate, configs); err != nil {
		e.handleRenderFault(block, err)
		return nil
	}
	e.applyMasterGainAndClamp(block)
	e.onRenderSuccess()
	return nil
}

// FillStereoBuffer is the stereo hard-realtime entry point. left and right
// must be the same length and no larger than MaxBuffer.
func (e *AudioEngine) FillStereoBuffer(left, right []float32) error {
	if err := e.precheck(config.Stereo, len(left), len(right)); err != nil {
		clearBlock(left)
		clearBlock(right)
		return err
	}
	st := engineState(e.state.Load())
	if st != statePlaying && st != stateStopped {
		clearBlock(left)
		clearBlock(right)
		return nil
	}

	configs := e.currentConfigs()
	if err := e.mixer.RenderStereo(left, right, e.sampleRate, configs); err != nil {
		e.handleRenderFault(left, err)
		clearBlock(right)
		return nil
	}
	// Both channels share one gain trajectory: the smoother advances once
	// per frame, not once per channel.
	startGain := e.smoothedGain
	e.applyMasterGainAndClamp(left)
	e.smoothedGain = startGain
	e.applyMasterGainAndClamp(right)
	e.onRenderSuccess()
	return nil
}

func (e *AudioEngine) precheck(wantMode config.ChannelMode, leftLen, rightLen int) *EngineError {
	if e.isDisposed() {
		return newError(KindDisposed, "engine has been disposed")
	}
	if e.channelMode != wantMode {
		return newError(KindChannelModeMismatch, "buffer call does not match engine channel mode")
	}
	if leftLen != rightLen {
		return newError(KindInvalidBufferGeometry, "left and right buffers differ in length")
	}
	if leftLen > MaxBuffer {
		return newError(KindInvalidBufferGeometry, "block exceeds MaxBuffer")
	}
	return nil
}

// currentConfigs performs the acquire-side read of the published snapshot.
// atomic.Pointer's Load is the acquire; readers always see either the
// previous snapshot in full or the new one in full, never a torn mix.
func (e *AudioEngine) currentConfigs() []config.LayerConfiguration {
	if snap := e.snapshot.Load(); snap != nil {
		e.lastSnapshot = *snap
		e.configDirty.Store(false)
	}
	return e.lastSnapshot.Layers()
}

// applyMasterGainAndClamp runs the per-sample slew smoother toward the
// master-gain target, multiplies by OutputGain, and hard-clamps to
// [-0.999, 0.999] as the safety limiter.
func (e *AudioEngine) applyMasterGainAndClamp(block []float32) {
	target := float64(float32frombits(e.masterGainTarget.Load()))
	outputGain := float64(float32frombits(e.outputGain.Load()))
	smoothed := e.smoothedGain

	for i, s := range block {
		smoothed += (target - smoothed) * masterGainSlew
		v := float64(s) * smoothed * outputGain
		if v > 0.999 {
			v = 0.999
		} else if v < -0.999 {
			v = -0.999
		}
		block[i] = float32(v)
	}
	e.smoothedGain = smoothed
}

// handleRenderFault implements the critical-error policy of spec.md §4.8:
// clear the output, record the fault, bump the consecutive-error count, and
// latch a critical error (stopping playback, so later FillBuffer calls output
// silence until Start is called again, and dispatching an off-thread
// notification) once MaxConsecutiveErrors is reached.
func (e *AudioEngine) handleRenderFault(block []float32, err error) {
	clearBlock(block)

	engErr, ok := err.(*EngineError)
	if !ok {
		engErr = newError(KindInternalRenderFault, err.Error())
	} else if engErr.Kind != KindInternalRenderFault {
		engErr = newError(KindInternalRenderFault, engErr.Error())
	}
	e.lastError.Store(engErr)

	count := e.consecutiveErrors.Add(1)
	if count >= MaxConsecutiveErrors {
		e.hasCriticalError.Store(true)
		e.state.Store(int32(stateInitialized))
		e.dispatchNotification(*engErr)
	}
}

// dispatchNotification hands delivery off to a background goroutine; the
// callback itself never invokes a subscriber synchronously.
func (e *AudioEngine) dispatchNotification(err EngineError) {
	go func() {
		defer func() { recover() }() // notifications channel may be closed by a concurrent Dispose
		select {
		case e.notifications <- err:
		default:
		}
	}()
}

func (e *AudioEngine) onRenderSuccess() {
	e.consecutiveErrors.Store(0)
}

func float32bits(v float64) uint32        { return math.Float32bits(float32(v)) }
func float32frombits(bits uint32) float32 { return math.Float32frombits(bits) }

