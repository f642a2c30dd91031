package pcktsim

// generator.go holds the TrafficGenerator, which decides which events an
// agent produces, and when.  A generator is called when the simulation starts,
// each time one of its requests has been put on the wire, and each time a
// packet reaches its agent.  What it does depends on the triggering event:
//
//   - no trigger: an active generator sends its next request if the window of
//     its current session allows
//   - a request from another agent: a passive generator answers it, or, in
//     delayed-response mode, relays it to its own destinations and answers once
//     all of them have responded
//   - a response: the session it belongs to counts it; a completed session is
//     retired, and an active generator opens a new one and sends again
//
// A generator that has finished (departure callback said so, or its lifetime
// has passed) produces nothing more.

import (
	"fmt"
)

// DepartureFunc computes the time until the next departure; returning false
// finishes the generator
type DepartureFunc func(gen *TrafficGenerator, now Time) (Time, bool)

// PacketMaker builds the packet of an outgoing event.  dst is nil when a
// single packet is built for every destination of a multicast.
type PacketMaker func(gen *TrafficGenerator, kind EventKind, trigger *Event, dst *Agent) (*Packet, error)

// GeneratorConfig describes the behavior of a TrafficGenerator
type GeneratorConfig struct {
	Name string

	// no departure happens after this time; zero means no limit
	Lifetime Time

	// time between departures, or Dynamic to ask DepartureFunc
	Departure     Time
	DepartureFunc DepartureFunc

	// maximum number of requests in flight per session; zero means unlimited
	Window int

	Request    *Packet
	Response   *Packet
	MakePacket PacketMaker

	// framing added to every packet
	Protocols []Protocol

	// Active generators send on their own; passive ones only react to requests
	Active bool

	// answer a request only once a relayed chain of requests has completed
	DelayResponse bool

	// keep the generator clock in step with the agent receiving events
	WaitResponse bool

	// one logical send reaches every destination
	Multicast bool

	// initial value of the generator clock
	Start Time
}

// TrafficGenerator produces the request and response events of an agent
type TrafficGenerator struct {
	cfg          GeneratorConfig
	agent        *Agent
	destinations []*Agent

	clock    Time
	finished bool

	current  *FlowSession
	sessions map[uint64]*FlowSession
	cursor   int

	sent, received int
	peakInFlight   int
}

// NewTrafficGenerator is a constructor
func NewTrafficGenerator(cfg GeneratorConfig) (*TrafficGenerator, error) {
	if cfg.Name == "" {
		cfg.Name = "generator"
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = Infinite
	}
	if cfg.Departure.IsDynamic() && cfg.DepartureFunc == nil {
		return nil, fmt.Errorf("generator %s: dynamic departure needs a departure function", cfg.Name)
	}
	if cfg.MakePacket == nil {
		if (cfg.Active || cfg.DelayResponse) && cfg.Request == nil {
			return nil, fmt.Errorf("generator %s sends requests but has no request packet", cfg.Name)
		}
		if !cfg.Active && cfg.Response == nil {
			return nil, fmt.Errorf("generator %s answers requests but has no response packet", cfg.Name)
		}
		for _, pkt := range []*Packet{cfg.Request, cfg.Response} {
			if pkt != nil && pkt.IsDynamic() {
				return nil, ErrUnresolvedDynamicSize(cfg.Name)
			}
		}
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("generator %s: negative window", cfg.Name)
	}
	if cfg.Window == 0 {
		cfg.Window = Unlimited
	}
	if cfg.Start < 0 {
		cfg.Start = Zero
	}

	gen := new(TrafficGenerator)
	gen.cfg = cfg
	gen.destinations = []*Agent{}
	gen.sessions = make(map[uint64]*FlowSession)
	gen.clock = cfg.Start
	gen.cursor = -1
	return gen, nil
}

func (gen *TrafficGenerator) Name() string { return gen.cfg.Name }

// Config returns the configuration the generator was built with
func (gen *TrafficGenerator) Config() GeneratorConfig { return gen.cfg }

// Agent returns the agent owning the generator
func (gen *TrafficGenerator) Agent() *Agent { return gen.agent }

// Clock returns the generator's internal clock
func (gen *TrafficGenerator) Clock() Time { return gen.clock }

// Finished reports whether the generator has stopped producing events
func (gen *TrafficGenerator) Finished() bool { return gen.finished }

// Sent returns the number of requests sent
func (gen *TrafficGenerator) Sent() int { return gen.sent }

// Received returns the number of responses counted
func (gen *TrafficGenerator) Received() int { return gen.received }

// PeakInFlight returns the largest number of unanswered requests a session has had
func (gen *TrafficGenerator) PeakInFlight() int { return gen.peakInFlight }

// Current returns the session active sends go to, or nil
func (gen *TrafficGenerator) Current() *FlowSession { return gen.current }

// NumSessions returns the number of open sessions
func (gen *TrafficGenerator) NumSessions() int { return len(gen.sessions) }

// Destinations returns the agents the generator addresses
func (gen *TrafficGenerator) Destinations() []*Agent { return gen.destinations }

// AddDestination appends dst to the destinations, ignoring duplicates
func (gen *TrafficGenerator) AddDestination(dst *Agent) {
	for _, d := range gen.destinations {
		if d == dst {
			return
		}
	}
	gen.destinations = append(gen.destinations, dst)
}

// Generate returns the events the generator produces at time now in reaction
// to trigger, nil for a self-driven call
func (gen *TrafficGenerator) Generate(now Time, trigger *Event) ([]*Event, error) {
	if gen.finished && (trigger == nil || trigger.Kind != ResponseEvent) {
		return nil, nil
	}
	if gen.cfg.WaitResponse || gen.cfg.DelayResponse {
		gen.clock = maxTime(gen.clock, now)
	}

	switch {
	case trigger == nil || (trigger.Kind == RequestEvent && trigger.Source == gen.agent):
		if !gen.cfg.Active {
			return nil, nil
		}
		return gen.send(now, trigger)
	case trigger.Kind == RequestEvent:
		if gen.cfg.Active {
			return nil, nil
		}
		if gen.cfg.DelayResponse {
			return gen.relay(now, trigger)
		}
		return gen.respond(now, trigger)
	case trigger.Kind == ResponseEvent:
		return gen.collect(now, trigger)
	}
	return nil, nil
}

// departure advances the generator clock to the next departure.  false means
// the generator has finished.
func (gen *TrafficGenerator) departure(now Time) (Time, bool) {
	if gen.finished {
		return Zero, false
	}
	delta := gen.cfg.Departure
	if delta.IsDynamic() {
		var ok bool
		delta, ok = gen.cfg.DepartureFunc(gen, now)
		if !ok || delta.IsDynamic() {
			gen.finished = true
			return Zero, false
		}
	}
	gen.clock = gen.clock.Add(delta)
	if gen.clock > gen.cfg.Lifetime {
		gen.finished = true
		return Zero, false
	}
	return gen.clock, true
}

// openSession replaces the current session
func (gen *TrafficGenerator) openSession() *FlowSession {
	window := gen.cfg.Window
	if gen.cfg.Multicast && window != Unlimited {
		window *= len(gen.destinations)
	}
	fs := createFlowSession(gen.agent, window, gen.cursor)
	gen.sessions[fs.ID] = fs
	gen.current = fs
	return fs
}

func (gen *TrafficGenerator) fanOut() int {
	if gen.cfg.Multicast {
		return len(gen.destinations)
	}
	return 1
}

// send emits the next request of the current session, if its window allows
func (gen *TrafficGenerator) send(now Time, trigger *Event) ([]*Event, error) {
	if len(gen.destinations) == 0 {
		return nil, nil
	}
	fs := gen.current
	if fs == nil {
		fs = gen.openSession()
	}
	if !fs.CanSend(gen.fanOut()) {
		return nil, nil
	}
	at, ok := gen.departure(now)
	if !ok {
		return nil, nil
	}
	return gen.emitRequests(fs, at, trigger)
}

// relay answers a request from elsewhere with requests of its own, in a new
// session that remembers whom to answer
func (gen *TrafficGenerator) relay(now Time, req *Event) ([]*Event, error) {
	if len(gen.destinations) == 0 {
		return gen.respond(now, req)
	}
	at, ok := gen.departure(now)
	if !ok {
		return nil, nil
	}
	fs := createFlowSession(gen.agent, gen.fanOut(), gen.cursor)
	fs.origin = req
	gen.sessions[fs.ID] = fs
	return gen.emitRequests(fs, at, req)
}

func (gen *TrafficGenerator) emitRequests(fs *FlowSession, at Time, trigger *Event) ([]*Event, error) {
	var targets []*Agent
	if gen.cfg.Multicast {
		targets = gen.destinations
	} else {
		idx := fs.nextDestination(len(gen.destinations))
		gen.cursor = fs.cursor
		targets = []*Agent{gen.destinations[idx]}
	}

	events := make([]*Event, 0, len(targets))
	for _, dst := range targets {
		pkt, err := gen.requestPacket(fs, trigger, dst)
		if err != nil {
			return nil, err
		}
		evt, err := NewRequest(gen.agent, dst, pkt, at, fs.ID)
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", gen.cfg.Name, err)
		}
		evt.gen = gen
		events = append(events, evt)
	}
	fs.Sent += len(targets)
	gen.sent += len(targets)
	if fs.InFlight() > gen.peakInFlight {
		gen.peakInFlight = fs.InFlight()
	}
	return events, nil
}

func (gen *TrafficGenerator) requestPacket(fs *FlowSession, trigger *Event, dst *Agent) (*Packet, error) {
	if !gen.cfg.Multicast {
		return gen.makePacket(RequestEvent, trigger, dst)
	}
	if fs.packet == nil {
		pkt, err := gen.makePacket(RequestEvent, trigger, nil)
		if err != nil {
			return nil, err
		}
		fs.packet = pkt
	}
	return fs.packet.Clone(), nil
}

// respond answers req
func (gen *TrafficGenerator) respond(now Time, req *Event) ([]*Event, error) {
	pkt, err := gen.makePacket(ResponseEvent, req, req.Source)
	if err != nil {
		return nil, err
	}
	at, ok := gen.departure(now)
	if !ok {
		return nil, nil
	}
	evt, err := NewResponse(req, pkt, at)
	if err != nil {
		return nil, fmt.Errorf("generator %s: %w", gen.cfg.Name, err)
	}
	evt.gen = gen
	return []*Event{evt}, nil
}

// collect accounts for a response in the session it belongs to
func (gen *TrafficGenerator) collect(now Time, resp *Event) ([]*Event, error) {
	fs, present := gen.sessions[resp.FlowID]
	if !present {
		return nil, nil
	}
	fs.Received++
	gen.received++
	if !fs.Completed() {
		return nil, nil
	}

	delete(gen.sessions, fs.ID)
	if fs.origin != nil {
		return gen.respond(now, fs.origin)
	}
	if gen.current == fs {
		gen.current = nil
	}
	if !gen.cfg.Active {
		return nil, nil
	}
	return gen.send(now, resp)
}

// makePacket builds the packet of an outgoing event and applies the framing
func (gen *TrafficGenerator) makePacket(kind EventKind, trigger *Event, dst *Agent) (*Packet, error) {
	var pkt *Packet
	if gen.cfg.MakePacket != nil {
		var err error
		pkt, err = gen.cfg.MakePacket(gen, kind, trigger, dst)
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", gen.cfg.Name, err)
		}
	} else {
		base := gen.cfg.Request
		if kind == ResponseEvent {
			base = gen.cfg.Response
		}
		if base != nil {
			pkt = base.Clone()
		}
	}
	if pkt == nil {
		return nil, fmt.Errorf("generator %s has no %s packet", gen.cfg.Name, kind)
	}
	if pkt.IsDynamic() {
		return nil, ErrUnresolvedDynamicSize(gen.cfg.Name)
	}
	pkt.Size = EncodedSize(pkt.Size, gen.cfg.Protocols...)
	return pkt, nil
}

func (gen *TrafficGenerator) String() string {
	return fmt.Sprintf("%s (sent %d, received %d)", gen.cfg.Name, gen.sent, gen.received)
}
