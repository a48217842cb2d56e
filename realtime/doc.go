// Package realtime
// Author: momentics <momentics@gmail.com>
//
// Typed JSON event protocol for cloud conversational-audio sessions, layered
// on one client.WSSession. Outbound operations each encode a small event
// object into a single Text frame; inbound Text frames are mapped to a typed
// Event. Unrecognized or malformed events degrade to EventUnknown so a
// single bad message never takes down the session.
package realtime
