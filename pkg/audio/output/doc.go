// ABOUTME: Host audio output backends
// ABOUTME: Pull-model adapters that call a render function per device buffer
// Package output connects a render callback to an audio device.
//
// Every backend pulls: the device asks for a buffer, the backend zeroes a
// float32 scratch buffer, calls the RenderFunc to mix into it, applies the
// master volume and hands the result to the device. Available backends:
//   - oto: default, pure Go on most platforms, float32 output
//   - malgo: miniaudio device callback, float32 output
//   - portaudio: requires building with -tags portaudio
//   - headless: no device, rendered on demand or paced by a ticker
//
// Example:
//
//	out, err := output.New("oto")
//	if err != nil {
//	    return err
//	}
//	if err := out.Open(48000, 2, session.Process); err != nil {
//	    return err
//	}
//	defer out.Close()
package output
