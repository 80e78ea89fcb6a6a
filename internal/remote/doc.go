// ABOUTME: Remote control package documentation
// ABOUTME: Describes the control socket handshake and message flow
// Package remote serves a playback session over a websocket so an editor
// front-end can drive the engine from another process.
//
// A client opens /control, sends client/hello and receives server/hello
// followed by engine/state. Each control/* message is answered with
// engine/state on success or server/error on failure; engine/state is also
// pushed to every client at Config.StateInterval while Start is running.
package remote
