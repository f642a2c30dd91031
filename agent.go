package pcktsim

import (
	"fmt"
)

// Agent is a traffic endpoint.  It is bound to the topology node sharing its
// id, and holds the generators that decide what it sends.
type Agent struct {
	ID   int64
	Name string

	node       *NetworkNode
	generators []*TrafficGenerator

	// local virtual clock, never moves backwards
	clock Time

	// the agent is busy transmitting or processing until this time
	availableAt Time

	// a parallel agent pays no serialization delay when it sends
	parallel bool
}

// CreateAgent is a constructor.  The agent is bound to node id when it is
// added to a simulator.
func CreateAgent(id int64, name string) *Agent {
	if name == "" {
		name = fmt.Sprintf("agent-%d", id)
	}
	return &Agent{ID: id, Name: name, generators: []*TrafficGenerator{}}
}

// Node returns the node the agent is bound to, nil before binding
func (a *Agent) Node() *NetworkNode {
	return a.node
}

// AddGenerator attaches a generator to the agent
func (a *Agent) AddGenerator(gen *TrafficGenerator) error {
	if gen.agent != nil && gen.agent != a {
		return fmt.Errorf("generator %s already belongs to agent %d", gen.Name(), gen.agent.ID)
	}
	gen.agent = a
	a.generators = append(a.generators, gen)
	return nil
}

// Generators returns the generators of the agent
func (a *Agent) Generators() []*TrafficGenerator {
	return a.generators
}

// SetParallelTransmission lets the agent send without serialization delay
func (a *Agent) SetParallelTransmission(parallel bool) {
	a.parallel = parallel
}

// ParallelTransmission reports whether the agent sends in parallel
func (a *Agent) ParallelTransmission() bool {
	return a.parallel
}

// Clock returns the agent's local virtual clock
func (a *Agent) Clock() Time {
	return a.clock
}

// AvailableAt returns the time the agent stops being busy
func (a *Agent) AvailableAt() Time {
	return a.availableAt
}

// setClock advances the local clock; a candidate not later than the clock is ignored
func (a *Agent) setClock(t Time) {
	if t > a.clock {
		a.clock = t
	}
}

// Connect adds dst to the destinations of every generator of the agent
func (a *Agent) Connect(dst *Agent) {
	for _, gen := range a.generators {
		gen.AddDestination(dst)
	}
}

// ConnectAll connects the agent to each of dsts, in order
func (a *Agent) ConnectAll(dsts ...*Agent) {
	for _, dst := range dsts {
		a.Connect(dst)
	}
}

// fire offers trigger (nil for a self-driven start) to every generator and
// gathers what they produce
func (a *Agent) fire(now Time, trigger *Event) ([]*Event, error) {
	events := []*Event{}
	for _, gen := range a.generators {
		produced, err := a.drive(gen, now, trigger)
		if err != nil {
			return nil, err
		}
		events = append(events, produced...)
	}
	return events, nil
}

// drive runs one generator, no produced event being due before now
func (a *Agent) drive(gen *TrafficGenerator, now Time, trigger *Event) ([]*Event, error) {
	produced, err := gen.Generate(now, trigger)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", a.ID, err)
	}
	for _, evt := range produced {
		if evt.time < now {
			evt.time, evt.created = now, now
		}
	}
	return produced, nil
}

func (a *Agent) String() string {
	return fmt.Sprintf("%s(%d)", a.Name, a.ID)
}
