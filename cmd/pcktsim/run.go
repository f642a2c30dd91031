package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/iti/pcktsim"
	"github.com/iti/pcktsim/datarecording"
	"github.com/iti/pcktsim/monitoring"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an experiment.",
	Long: "`run --experiment exp.yaml` builds the network and traffic an " +
		"experiment describes, runs it, and writes the requested traces.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := runExperiment(loadSettings(viper.GetViper()))
		if err != nil {
			return err
		}
		fmt.Println(stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Float64("duration", 0, "run length in seconds, overriding the experiment's")
	runCmd.Flags().String("trace", "", "hop trace file")
	runCmd.Flags().String("records", "", "structured trace file (yaml or json)")
	runCmd.Flags().String("db", "", "SQLite database recording the run (without extension)")
	runCmd.Flags().String("monitor", "", "address of the monitoring server")
	runCmd.Flags().String("metrics", "", "Prometheus text file written after the run")
	runCmd.Flags().String("samples", "", "sampler output file (yaml or json)")
	runCmd.Flags().String("sample-mode", "cumulative", "cumulative, average, min or max")
	viper.BindPFlag("duration", runCmd.Flags().Lookup("duration"))
	viper.BindPFlag("trace.file", runCmd.Flags().Lookup("trace"))
	viper.BindPFlag("trace.records", runCmd.Flags().Lookup("records"))
	viper.BindPFlag("trace.db", runCmd.Flags().Lookup("db"))
	viper.BindPFlag("monitor.addr", runCmd.Flags().Lookup("monitor"))
	viper.BindPFlag("metrics.file", runCmd.Flags().Lookup("metrics"))
	viper.BindPFlag("samples.file", runCmd.Flags().Lookup("samples"))
	viper.BindPFlag("samples.mode", runCmd.Flags().Lookup("sample-mode"))
}

// runExperiment runs the experiment named by s with every output s asks for
func runExperiment(s settings) (pcktsim.RunStats, error) {
	if s.Experiment == "" {
		return pcktsim.RunStats{}, fmt.Errorf("no experiment file given")
	}
	ed, err := pcktsim.ReadExpDesc(s.Experiment, pcktsim.IsYAMLFile(s.Experiment), nil)
	if err != nil {
		return pcktsim.RunStats{}, err
	}
	sim, err := ed.BuildExperiment(filepath.Dir(s.Experiment))
	if err != nil {
		return pcktsim.RunStats{}, err
	}
	sim.SetVerbose(s.Verbose)

	if s.TraceFile != "" {
		sink, err := pcktsim.CreateFileTraceSink(s.TraceFile)
		if err != nil {
			return pcktsim.RunStats{}, err
		}
		sim.SetTraceSink(sink)
	}
	defer sim.Shutdown()

	tm := pcktsim.CreateTraceManager(ed.Name, s.TraceRecords != "")
	if err := tm.AddTopology(sim.Topology()); err != nil {
		return pcktsim.RunStats{}, err
	}
	sim.AcceptHook(tm)

	if s.TraceDB != "" {
		rec, err := datarecording.New(s.TraceDB)
		if err != nil {
			return pcktsim.RunStats{}, err
		}
		defer rec.Close()
		sim.AcceptHook(rec)
	}

	var sampler *pcktsim.Sampler
	if s.SamplesFile != "" {
		mode, err := pcktsim.ParseSampleMode(s.SamplesMode)
		if err != nil {
			return pcktsim.RunStats{}, err
		}
		if sampler, err = pcktsim.CreateSampler(pcktsim.TimeOf(s.SamplesInterval, pcktsim.Millisecond), mode); err != nil {
			return pcktsim.RunStats{}, err
		}
		sim.AcceptHook(sampler)
	}

	var metrics *monitoring.Metrics
	if s.MetricsFile != "" {
		metrics = monitoring.NewMetrics("pcktsim")
		sim.AcceptHook(metrics)
	}

	if s.MonitorAddr != "" {
		m := monitoring.NewMonitor().WithAddr(s.MonitorAddr)
		url, err := m.StartServer()
		if err != nil {
			return pcktsim.RunStats{}, err
		}
		defer m.Close()
		sim.AcceptHook(m)
		if s.MonitorOpen {
			if err := m.OpenBrowser(url); err != nil {
				log.Printf("opening %s: %v", url, err)
			}
		}
	}

	horizon := ed.MaxDuration()
	if s.Duration > 0 {
		horizon = pcktsim.TimeOf(s.Duration, pcktsim.Second)
	}
	if err := sim.Start(horizon); err != nil {
		return sim.Stats(), err
	}

	if err := tm.WriteToFile(s.TraceRecords); err != nil {
		return sim.Stats(), err
	}
	if sampler != nil {
		if err := sampler.WriteToFile(s.SamplesFile); err != nil {
			return sim.Stats(), err
		}
	}
	if metrics != nil {
		if err := metrics.WriteToTextfile(s.MetricsFile); err != nil {
			return sim.Stats(), err
		}
	}
	return sim.Stats(), nil
}
