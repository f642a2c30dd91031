package main

import (
	"fmt"
	"path/filepath"

	"github.com/iti/pcktsim"
	"github.com/spf13/viper"
)

// settings gathers the configuration of a command, whatever its source
type settings struct {
	Experiment string
	Topology   string

	// seconds; zero keeps the experiment's own duration
	Duration float64

	TraceFile    string
	TraceRecords string
	TraceDB      string

	SamplesFile     string
	SamplesInterval float64
	SamplesMode     string

	MonitorAddr string
	MonitorOpen bool
	MetricsFile string

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	Verbose bool
}

func loadSettings(v *viper.Viper) settings {
	return settings{
		Experiment:      v.GetString("experiment"),
		Topology:        v.GetString("topology"),
		Duration:        v.GetFloat64("duration"),
		TraceFile:       v.GetString("trace.file"),
		TraceRecords:    v.GetString("trace.records"),
		TraceDB:         v.GetString("trace.db"),
		SamplesFile:     v.GetString("samples.file"),
		SamplesInterval: v.GetFloat64("samples.interval"),
		SamplesMode:     v.GetString("samples.mode"),
		MonitorAddr:     v.GetString("monitor.addr"),
		MonitorOpen:     v.GetBool("monitor.open"),
		MetricsFile:     v.GetString("metrics.file"),
		Neo4jURI:        v.GetString("neo4j.uri"),
		Neo4jUser:       v.GetString("neo4j.user"),
		Neo4jPassword:   v.GetString("neo4j.password"),
		Neo4jDatabase:   v.GetString("neo4j.database"),
		Verbose:         v.GetBool("verbose"),
	}
}

// loadTopology builds the topology named by the settings: the topology file
// if given, otherwise the one of the experiment
func (s settings) loadTopology() (*pcktsim.Topology, error) {
	if s.Topology != "" {
		td, err := pcktsim.ReadTopoDesc(s.Topology, pcktsim.IsYAMLFile(s.Topology), nil)
		if err != nil {
			return nil, err
		}
		return td.BuildTopology()
	}
	if s.Experiment == "" {
		return nil, fmt.Errorf("no topology or experiment file given")
	}
	ed, err := pcktsim.ReadExpDesc(s.Experiment, pcktsim.IsYAMLFile(s.Experiment), nil)
	if err != nil {
		return nil, err
	}
	return ed.LoadTopology(filepath.Dir(s.Experiment))
}
