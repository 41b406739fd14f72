// Package websocket pushes segmentation progress to browser clients.
//
// A Hub owns the set of connected clients and fans out JSON messages. Each
// Client runs a read pump and a write pump; a client whose send buffer is
// full is disconnected rather than allowed to stall the hub.
package websocket
