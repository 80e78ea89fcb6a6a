// ABOUTME: Audio decoder package for multiple codec support
// ABOUTME: Decodes whole files to float PCM before they reach the engine
// Package decode turns encoded audio files into audio.PCM buffers.
//
// Supports: WAV (8/16/24/32-bit), MP3, FLAC, Ogg Opus and raw 16/24-bit PCM.
//
// Decoding happens entirely up front on the caller's goroutine; the
// playback engine only ever sees decoded float samples.
//
// Example:
//
//	pcm, err := decode.File("song.flac")
//	if err != nil {
//	    return err
//	}
//	err = session.LoadPCM(pcm, playback.Song)
package decode
