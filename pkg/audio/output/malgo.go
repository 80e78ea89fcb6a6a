// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Renders float32 frames directly inside the miniaudio data callback
package output

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// Render functions produce float32, so the device always runs F32
const (
	malgoFormat     = malgo.FormatF32
	malgoFormatName = "F32"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	master
	mu         sync.Mutex
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	render     RenderFunc
	sampleRate int
	channels   int
	ready      bool

	// scratch is only touched by the data callback
	scratch []float32
}

// NewMalgo creates a new Malgo output
func NewMalgo() Output {
	m := &Malgo{}
	m.master.init()
	return m
}

// Open initializes the output device with specified format
func (m *Malgo) Open(sampleRate, channels int, render RenderFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		log.Printf("Reopening audio output (%dHz/%dch -> %dHz/%dch), reinitializing device",
			m.sampleRate, m.channels, sampleRate, channels)
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to close old device: %w", err)
		}
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgoFormat
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	m.render = render
	m.channels = channels
	m.scratch = make([]float32, maxBlockFrames*channels)

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		m.dataCallback(pOutputSample, frameCount)
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.sampleRate = sampleRate
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (malgo/%s)",
		sampleRate, channels, malgoFormatName)
	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	frames := int(frameCount)
	n := 0
	for frames > 0 {
		block := min(frames, maxBlockFrames)
		buf := m.scratch[:block*m.channels]
		m.master.render(m.render, buf, m.channels)
		for i, v := range buf {
			binary.LittleEndian.PutUint32(pOutput[n+i*4:], math.Float32bits(v))
		}
		n += len(buf) * 4
		frames -= block
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.closeDevice(); err != nil {
		return err
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() error {
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
		m.ready = false
	}
	return nil
}
