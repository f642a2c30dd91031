package pcktsim

// trace.go holds the destinations of the hop trace: the line-oriented sinks
// read by trace players, and the TraceManager that gathers structured records
// of a run for post-run analysis

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// A TraceSink receives one line per hop
type TraceSink interface {
	Track(line string)
	Close() error
}

// FormatHop renders a hop as "source_node start_time dest_node end_time kind",
// times in microseconds and kind 1 for a request, -1 for a response
func FormatHop(hop HopRecord) string {
	return fmt.Sprintf("%d %d %d %d %d", hop.From, hop.Start.Micros(), hop.To, hop.End.Micros(), hop.Kind.traceFlag())
}

// ParseHop is the inverse of FormatHop
func ParseHop(line string) (HopRecord, error) {
	var hop HopRecord
	var start, end int64
	var flag int
	n, err := fmt.Sscanf(line, "%d %d %d %d %d", &hop.From, &start, &hop.To, &end, &flag)
	if err != nil || n != 5 {
		return hop, fmt.Errorf("malformed trace line %q", line)
	}
	hop.Start, hop.End = Time(start), Time(end)
	hop.Kind = RequestEvent
	if flag < 0 {
		hop.Kind = ResponseEvent
	}
	return hop, nil
}

// FileTraceSink writes trace lines to a file
type FileTraceSink struct {
	file *os.File
	w    *bufio.Writer
}

// CreateFileTraceSink creates (or truncates) the trace file, making any missing directories
func CreateFileTraceSink(filename string) (*FileTraceSink, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &FileTraceSink{file: f, w: bufio.NewWriter(f)}, nil
}

// Track appends a line.  Write errors are reported by Close.
func (fs *FileTraceSink) Track(line string) {
	fs.w.WriteString(line)
	fs.w.WriteByte('\n')
}

// Close flushes and closes the file
func (fs *FileTraceSink) Close() error {
	ferr := fs.w.Flush()
	cerr := fs.file.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// MemoryTraceSink keeps the trace lines in memory
type MemoryTraceSink struct {
	Lines []string
}

// NewMemoryTraceSink is a constructor
func NewMemoryTraceSink() *MemoryTraceSink {
	return &MemoryTraceSink{Lines: []string{}}
}

func (ms *MemoryTraceSink) Track(line string) {
	ms.Lines = append(ms.Lines, line)
}

func (ms *MemoryTraceSink) Close() error {
	return nil
}

// NameType is an entry in a dictionary created for a trace
// that maps node id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceRecord saves information about the visit of a packet to some point in
// the network.  Op is one of "hop", "deliver", "drop".
type TraceRecord struct {
	Time    float64 `json:"time" yaml:"time"`
	Ticks   int64   `json:"ticks" yaml:"ticks"`
	EventID uint64  `json:"eventid" yaml:"eventid"`
	Op      string  `json:"op" yaml:"op"`
	Kind    string  `json:"kind" yaml:"kind"`
	From    int64   `json:"from" yaml:"from"`
	To      int64   `json:"to,omitempty" yaml:"to,omitempty"`
	End     int64   `json:"end,omitempty" yaml:"end,omitempty"`
	Reason  string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// TraceManager gathers information about a topology and an execution over it.
// It is a Hook; records are grouped by flow.
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each node id
	NameByID map[int64]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by flow id
	Traces map[uint64][]TraceRecord `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  An inactive
// manager may stay registered as a hook; it records nothing.
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int64]NameType)
	tm.Traces = make(map[uint64][]TraceRecord)
	return tm
}

// Active tells the caller whether the TraceManager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddName adds an element to the id -> (name,type) dictionary
func (tm *TraceManager) AddName(id int64, name string, objDesc string) error {
	if !tm.InUse {
		return nil
	}
	if _, present := tm.NameByID[id]; present {
		return fmt.Errorf("duplicated id %d in AddName", id)
	}
	tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	return nil
}

// AddTopology enters every node of topo in the dictionary
func (tm *TraceManager) AddTopology(topo *Topology) error {
	for _, node := range topo.Nodes() {
		if err := tm.AddName(node.ID, node.Name, node.Kind.String()); err != nil {
			return err
		}
	}
	return nil
}

// AddTrace stores a record under flow id flowID
func (tm *TraceManager) AddTrace(flowID uint64, rec TraceRecord) {
	if !tm.InUse {
		return
	}
	tm.Traces[flowID] = append(tm.Traces[flowID], rec)
}

// NumRecords returns the number of records gathered
func (tm *TraceManager) NumRecords() int {
	n := 0
	for _, recs := range tm.Traces {
		n += len(recs)
	}
	return n
}

// Func records hops, deliveries and drops
func (tm *TraceManager) Func(ctx HookCtx) {
	if !tm.InUse {
		return
	}
	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}
	rec := TraceRecord{Time: ctx.Now.Seconds(), Ticks: ctx.Now.Micros(), EventID: evt.ID(), Kind: evt.Kind.String()}
	switch detail := ctx.Detail.(type) {
	case HopRecord:
		rec.Op = "hop"
		rec.From, rec.To, rec.End = detail.From, detail.To, detail.End.Micros()
	case Delivery:
		rec.Op = "deliver"
		rec.From = detail.Node
	case Drop:
		rec.Op = "drop"
		rec.From = detail.Node
		rec.Reason = detail.Reason.String()
	default:
		return
	}
	tm.AddTrace(evt.FlowID, rec)
}

// WriteToFile stores the TraceManager struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (tm *TraceManager) WriteToFile(filename string) error {
	if !tm.InUse {
		return nil
	}
	return writeDescFile(filename, tm)
}

// writeDescFile serializes v to filename, as yaml or json depending on its extension
func writeDescFile(filename string, v any) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	switch pathExt {
	case ".yaml", ".YAML", ".yml":
		bytes, merr = yaml.Marshal(v)
	case ".json", ".JSON":
		bytes, merr = json.MarshalIndent(v, "", "\t")
	default:
		return fmt.Errorf("cannot tell serialization format of %s", filename)
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// readDescFile deserializes the bytes in dict, or if dict is empty the contents
// of filename, into v
func readDescFile(filename string, useYAML bool, dict []byte, v any) error {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}
	if useYAML {
		return yaml.Unmarshal(dict, v)
	}
	return json.Unmarshal(dict, v)
}

// IsYAMLFile reports whether the name has a yaml extension
func IsYAMLFile(filename string) bool {
	ext := path.Ext(filename)
	return ext == ".yaml" || ext == ".YAML" || ext == ".yml"
}

