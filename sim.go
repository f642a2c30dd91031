package pcktsim

// sim.go holds the Simulator, which ties a topology, its agents and an
// event scheduler together and controls a run

import (
	"fmt"
	"sort"
)

// Simulator runs traffic over a topology
type Simulator struct {
	Name string

	topo   *Topology
	sched  *EventScheduler
	agents map[int64]*Agent
	trace  TraceSink

	verbose bool
	started bool
}

// CreateSimulator is a constructor
func CreateSimulator(name string, topo *Topology) *Simulator {
	sim := new(Simulator)
	sim.Name = name
	sim.topo = topo
	sim.sched = CreateEventScheduler(topo)
	sim.agents = make(map[int64]*Agent)
	return sim
}

// Topology returns the network being simulated
func (sim *Simulator) Topology() *Topology {
	return sim.topo
}

// Scheduler returns the event scheduler of the run
func (sim *Simulator) Scheduler() *EventScheduler {
	return sim.sched
}

// AddAgent binds agent to the node with its id
func (sim *Simulator) AddAgent(agent *Agent) error {
	if _, present := sim.agents[agent.ID]; present {
		return fmt.Errorf("simulator %s already has an agent on node %d", sim.Name, agent.ID)
	}
	if err := sim.topo.attachAgent(agent); err != nil {
		return err
	}
	sim.agents[agent.ID] = agent
	return nil
}

// AddAgents adds each of agents
func (sim *Simulator) AddAgents(agents ...*Agent) error {
	for _, agent := range agents {
		if err := sim.AddAgent(agent); err != nil {
			return err
		}
	}
	return nil
}

// Agent returns the agent on node id, or nil
func (sim *Simulator) Agent(id int64) *Agent {
	return sim.agents[id]
}

// Agents returns the agents ordered by id
func (sim *Simulator) Agents() []*Agent {
	agents := make([]*Agent, 0, len(sim.agents))
	for _, agent := range sim.agents {
		agents = append(agents, agent)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents
}

// SetTraceSink directs the hop trace of the run to sink
func (sim *Simulator) SetTraceSink(sink TraceSink) {
	sim.trace = sink
	sim.sched.SetTraceSink(sink)
}

// SetVerbose turns kernel logging of drops and topology changes on or off
func (sim *Simulator) SetVerbose(verbose bool) {
	sim.verbose = verbose
	sim.sched.SetVerbose(verbose)
}

// AcceptHook registers a hook with the scheduler
func (sim *Simulator) AcceptHook(hook Hook) {
	sim.sched.AcceptHook(hook)
}

// ScheduleLinkChange fails (active false) or recovers link from->to at time at.
// The returned event may be passed to Cancel.
func (sim *Simulator) ScheduleLinkChange(at Time, from, to int64, active bool) (*Event, error) {
	if sim.topo.linkRecord(from, to) == nil {
		return nil, ErrUnknownLink(from, to)
	}
	evt := NewLinkChange(at, from, to, active)
	return evt, sim.sched.Schedule(evt)
}

// ScheduleNodeChange fails or recovers node id at time at
func (sim *Simulator) ScheduleNodeChange(at Time, id int64, active bool) (*Event, error) {
	if _, err := sim.topo.Node(id); err != nil {
		return nil, err
	}
	evt := NewNodeChange(at, id, active)
	return evt, sim.sched.Schedule(evt)
}

// Cancel removes a queued event
func (sim *Simulator) Cancel(evt *Event) bool {
	return sim.sched.Remove(evt)
}

// Start seeds the scheduler with the first events of every agent and runs
// until the queue drains or maxDuration is passed.  A second call resumes the
// run without seeding again.
func (sim *Simulator) Start(maxDuration Time) error {
	if !sim.started {
		sim.started = true
		for _, agent := range sim.Agents() {
			events, err := agent.fire(sim.sched.Now(), nil)
			if err != nil {
				return err
			}
			if err := sim.sched.Schedule(events...); err != nil {
				return err
			}
		}
	}
	if sim.verbose {
		kernelLog.Printf("%s: running until %v with %d agents", sim.Name, maxDuration, len(sim.agents))
	}
	if err := sim.sched.RunUntilDurationOrEmpty(maxDuration); err != nil {
		return err
	}
	if sim.verbose {
		kernelLog.Printf("%s: stopped at %v, %v", sim.Name, sim.sched.Now(), sim.sched.Stats())
	}
	return nil
}

// Stop ends a run after the event being executed
func (sim *Simulator) Stop() {
	sim.sched.Stop()
}

// Shutdown releases the resources of the run; the trace sink is closed
func (sim *Simulator) Shutdown() error {
	if sim.trace == nil {
		return nil
	}
	err := sim.trace.Close()
	sim.SetTraceSink(nil)
	return err
}

// Now returns the simulation clock
func (sim *Simulator) Now() Time {
	return sim.sched.Now()
}

// Stats returns the counters of the run
func (sim *Simulator) Stats() RunStats {
	return sim.sched.Stats()
}
