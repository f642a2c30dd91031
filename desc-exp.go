package pcktsim

// desc-exp.go holds the serializable description of an experiment: the
// topology to use, the agents placed on its nodes, the generators driving
// them, and the topology changes to apply during the run.  Times are in
// milliseconds unless noted.

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SizeDesc describes a packet size, e.g. {value: 40, unit: KB}.
// A negative value describes a dynamic size.
type SizeDesc struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit" yaml:"unit"`
}

// Size converts the description
func (sd SizeDesc) Size() (Size, error) {
	if sd.Value < 0 {
		return DynamicSize, nil
	}
	unit := Byte
	if sd.Unit != "" {
		var err error
		if unit, err = ParseSizeUnit(sd.Unit); err != nil {
			return Size{}, err
		}
	}
	return SizeOf(sd.Value, unit), nil
}

// AgentDesc places an agent on a node
type AgentDesc struct {
	Node     int64  `json:"node" yaml:"node"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Parallel bool   `json:"parallel,omitempty" yaml:"parallel,omitempty"`
}

// GenDesc describes a generator.  Type is one of cbr, sink, client, multicast.
type GenDesc struct {
	Name         string   `json:"name,omitempty" yaml:"name,omitempty"`
	Agent        int64    `json:"agent" yaml:"agent"`
	Type         string   `json:"type" yaml:"type"`
	Lifetime     float64  `json:"lifetime,omitempty" yaml:"lifetime,omitempty"`
	Departure    float64  `json:"departure,omitempty" yaml:"departure,omitempty"`
	Start        float64  `json:"start,omitempty" yaml:"start,omitempty"`
	Window       int      `json:"window,omitempty" yaml:"window,omitempty"`
	Request      SizeDesc `json:"request" yaml:"request"`
	Response     SizeDesc `json:"response" yaml:"response"`
	Protocols    []string `json:"protocols,omitempty" yaml:"protocols,omitempty"`
	Destinations []int64  `json:"destinations,omitempty" yaml:"destinations,omitempty"`
}

// ChangeDesc describes a topology change.  With To set it concerns link
// Node->To, otherwise node Node.
type ChangeDesc struct {
	At     float64 `json:"at" yaml:"at"`
	Node   int64   `json:"node" yaml:"node"`
	To     *int64  `json:"to,omitempty" yaml:"to,omitempty"`
	Active bool    `json:"active" yaml:"active"`
}

// ExpDesc is the serializable description of an experiment
type ExpDesc struct {
	Name string `json:"name" yaml:"name"`

	// file holding the TopoDesc, relative to the experiment file
	TopoFile string `json:"topology,omitempty" yaml:"topology,omitempty"`

	// inline topology, used when TopoFile is empty
	Topo *TopoDesc `json:"topo,omitempty" yaml:"topo,omitempty"`

	// seconds
	Duration float64 `json:"duration" yaml:"duration"`

	Agents     []AgentDesc  `json:"agents" yaml:"agents"`
	Generators []GenDesc    `json:"generators" yaml:"generators"`
	Changes    []ChangeDesc `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// ReadExpDesc deserializes an ExpDesc from dict, or from the named file if dict is empty
func ReadExpDesc(filename string, useYAML bool, dict []byte) (*ExpDesc, error) {
	ed := new(ExpDesc)
	if err := readDescFile(filename, useYAML, dict, ed); err != nil {
		return nil, fmt.Errorf("reading experiment %s: %w", filename, err)
	}
	return ed, nil
}

// WriteToFile stores the ExpDesc, as yaml or json depending on the file extension
func (ed *ExpDesc) WriteToFile(filename string) error {
	return writeDescFile(filename, ed)
}

// MaxDuration returns the horizon of the run, Infinite if none is given
func (ed *ExpDesc) MaxDuration() Time {
	if ed.Duration <= 0 {
		return Infinite
	}
	return TimeOf(ed.Duration, Second)
}

// LoadTopology returns the topology of the experiment; a relative TopoFile
// is taken relative to baseDir
func (ed *ExpDesc) LoadTopology(baseDir string) (*Topology, error) {
	td := ed.Topo
	if ed.TopoFile != "" {
		filename := ed.TopoFile
		if !filepath.IsAbs(filename) {
			filename = filepath.Join(baseDir, filename)
		}
		var err error
		if td, err = ReadTopoDesc(filename, IsYAMLFile(filename), nil); err != nil {
			return nil, err
		}
	}
	if td == nil {
		return nil, fmt.Errorf("experiment %s describes no topology", ed.Name)
	}
	return td.BuildTopology()
}

// BuildExperiment creates the simulator the description calls for
func (ed *ExpDesc) BuildExperiment(baseDir string) (*Simulator, error) {
	topo, err := ed.LoadTopology(baseDir)
	if err != nil {
		return nil, err
	}
	sim := CreateSimulator(ed.Name, topo)

	for _, ad := range ed.Agents {
		agent := CreateAgent(ad.Node, ad.Name)
		agent.SetParallelTransmission(ad.Parallel)
		if err := sim.AddAgent(agent); err != nil {
			return nil, err
		}
	}

	for idx, gd := range ed.Generators {
		agent := sim.Agent(gd.Agent)
		if agent == nil {
			return nil, fmt.Errorf("generator %d: no agent on node %d", idx, gd.Agent)
		}
		gen, err := gd.build(fmt.Sprintf("%s-%d", strings.ToLower(gd.Type), idx))
		if err != nil {
			return nil, err
		}
		if err := agent.AddGenerator(gen); err != nil {
			return nil, err
		}
		for _, dstID := range gd.Destinations {
			dst := sim.Agent(dstID)
			if dst == nil {
				return nil, fmt.Errorf("generator %s: no agent on destination node %d", gen.Name(), dstID)
			}
			gen.AddDestination(dst)
		}
	}

	for _, cd := range ed.Changes {
		at := TimeOf(cd.At, Millisecond)
		if cd.To != nil {
			_, err = sim.ScheduleLinkChange(at, cd.Node, *cd.To, cd.Active)
		} else {
			_, err = sim.ScheduleNodeChange(at, cd.Node, cd.Active)
		}
		if err != nil {
			return nil, err
		}
	}
	return sim, nil
}

// build creates the generator described
func (gd GenDesc) build(defaultName string) (*TrafficGenerator, error) {
	name := gd.Name
	if name == "" {
		name = defaultName
	}
	var request, response *Packet
	if gd.Request.Value != 0 {
		size, err := gd.Request.Size()
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", name, err)
		}
		request = NewPacket(size)
	}
	if gd.Response.Value != 0 {
		size, err := gd.Response.Size()
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", name, err)
		}
		response = NewPacket(size)
	}
	protocols := make([]Protocol, 0, len(gd.Protocols))
	for _, pname := range gd.Protocols {
		proto, err := ParseProtocol(pname)
		if err != nil {
			return nil, fmt.Errorf("generator %s: %w", name, err)
		}
		protocols = append(protocols, proto)
	}

	cfg := GeneratorConfig{
		Name:      name,
		Lifetime:  TimeOf(gd.Lifetime, Millisecond),
		Departure: TimeOf(gd.Departure, Millisecond),
		Start:     TimeOf(gd.Start, Millisecond),
		Window:    gd.Window,
		Request:   request,
		Response:  response,
		Protocols: protocols,
	}
	switch strings.ToLower(gd.Type) {
	case "cbr":
		cfg.Active = true
		cfg.Window = 0
	case "sink":
		cfg.WaitResponse = true
	case "client":
		cfg.Active, cfg.WaitResponse = true, true
	case "multicast":
		cfg.DelayResponse, cfg.WaitResponse, cfg.Multicast = true, true, true
	default:
		return nil, fmt.Errorf("generator %s: unknown type %q", name, gd.Type)
	}
	return NewTrafficGenerator(cfg)
}
