package pcktsim

// flow.go holds the FlowSession, the bookkeeping of one exchange between a
// generator and the agents it addresses

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Unlimited is the window of a session that never waits for responses
const Unlimited = math.MaxInt

var numberOfSessions uint64

func nxtSessionID() uint64 {
	return atomic.AddUint64(&numberOfSessions, 1)
}

// FlowSession counts the packets sent and answered within one window
type FlowSession struct {
	ID       uint64
	Sent     int
	Received int
	Window   int
	Source   *Agent

	// built once per session, cloned for each destination of a multicast
	packet *Packet

	// round-robin position among the generator's destinations, -1 before the first send
	cursor int

	// the request that opened a relayed chain, answered when the session completes
	origin *Event
}

// createFlowSession is a constructor.  cursor carries the round-robin
// position over from the session being replaced.
func createFlowSession(src *Agent, window, cursor int) *FlowSession {
	if window <= 0 {
		window = Unlimited
	}
	return &FlowSession{ID: nxtSessionID(), Window: window, Source: src, cursor: cursor}
}

// CanSend reports whether the window admits n more packets
func (fs *FlowSession) CanSend(n int) bool {
	if fs.Window == Unlimited {
		return true
	}
	return fs.Sent+n <= fs.Window
}

// Completed is true once every packet of the window has been answered
func (fs *FlowSession) Completed() bool {
	return fs.Window != Unlimited && fs.Received >= fs.Window
}

// InFlight returns the number of packets sent and not answered
func (fs *FlowSession) InFlight() int {
	return fs.Sent - fs.Received
}

// nextDestination advances the round-robin cursor over n destinations
func (fs *FlowSession) nextDestination(n int) int {
	fs.cursor = (fs.cursor + 1) % n
	return fs.cursor
}

func (fs *FlowSession) String() string {
	window := "unlimited"
	if fs.Window != Unlimited {
		window = fmt.Sprintf("%d", fs.Window)
	}
	return fmt.Sprintf("session %d (sent %d, received %d, window %s)", fs.ID, fs.Sent, fs.Received, window)
}
