package pcktsim

// sampler.go gathers time series out of a run.  Values are added to named
// series and folded into fixed-width time buckets.

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// SampleMode tells how the values falling in one bucket are folded
type SampleMode int

const (
	// Cumulative reports the running total up to the end of each bucket
	Cumulative SampleMode = iota
	Average
	Minimum
	Maximum
)

var modeNames = map[SampleMode]string{
	Cumulative: "cumulative", Average: "average", Minimum: "min", Maximum: "max"}

// ParseSampleMode maps a mode name to its SampleMode
func ParseSampleMode(name string) (SampleMode, error) {
	for mode, modeName := range modeNames {
		if strings.EqualFold(modeName, name) {
			return mode, nil
		}
	}
	return Cumulative, fmt.Errorf("unknown sample mode %q", name)
}

func (m SampleMode) String() string {
	return modeNames[m]
}

// Sample is the folded value of one bucket
type Sample struct {
	Start Time    `json:"start" yaml:"start"`
	Value float64 `json:"value" yaml:"value"`
	Count int     `json:"count" yaml:"count"`
}

type bucket struct {
	sum, min, max float64
	count         int
}

// Sampler folds values into buckets of width Interval
type Sampler struct {
	Interval Time
	Mode     SampleMode

	series map[string]map[int64]*bucket
}

// CreateSampler is a constructor
func CreateSampler(interval Time, mode SampleMode) (*Sampler, error) {
	if interval <= 0 || interval == Infinite {
		return nil, fmt.Errorf("sampling interval must be positive and finite, not %v", interval)
	}
	return &Sampler{Interval: interval, Mode: mode, series: make(map[string]map[int64]*bucket)}, nil
}

// Add folds value, observed at time at, into series name
func (s *Sampler) Add(name string, at Time, value float64) {
	buckets, present := s.series[name]
	if !present {
		buckets = make(map[int64]*bucket)
		s.series[name] = buckets
	}
	idx := int64(at / s.Interval)
	b, present := buckets[idx]
	if !present {
		b = &bucket{min: math.Inf(1), max: math.Inf(-1)}
		buckets[idx] = b
	}
	b.sum += value
	b.count++
	b.min = math.Min(b.min, value)
	b.max = math.Max(b.max, value)
}

// Names returns the series names in sorted order
func (s *Sampler) Names() []string {
	names := make([]string, 0, len(s.series))
	for name := range s.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Series returns the samples of series name, in time order.
// Buckets in which nothing was observed are omitted.
func (s *Sampler) Series(name string) []Sample {
	buckets := s.series[name]
	idxs := make([]int64, 0, len(buckets))
	for idx := range buckets {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	samples := make([]Sample, 0, len(idxs))
	running := 0.0
	for _, idx := range idxs {
		b := buckets[idx]
		sample := Sample{Start: Time(idx) * s.Interval, Count: b.count}
		switch s.Mode {
		case Cumulative:
			running += b.sum
			sample.Value = running
		case Average:
			sample.Value = b.sum / float64(b.count)
		case Minimum:
			sample.Value = b.min
		case Maximum:
			sample.Value = b.max
		}
		samples = append(samples, sample)
	}
	return samples
}

// Func feeds the sampler from a run: delivered bytes per node and latency per
// node, both keyed by the node id
func (s *Sampler) Func(ctx HookCtx) {
	if ctx.Pos != HookPosDelivered {
		return
	}
	evt, ok := ctx.Item.(*Event)
	if !ok {
		return
	}
	delivery, ok := ctx.Detail.(Delivery)
	if !ok {
		return
	}
	s.Add(fmt.Sprintf("bytes/node-%d", delivery.Node), ctx.Now, evt.Packet.Size.Bytes())
	s.Add(fmt.Sprintf("latency/node-%d", delivery.Node), ctx.Now, delivery.Latency.Millis())
}

// samplerDesc is the serialized form of a Sampler
type samplerDesc struct {
	Interval int64               `json:"interval" yaml:"interval"`
	Mode     string              `json:"mode" yaml:"mode"`
	Series   map[string][]Sample `json:"series" yaml:"series"`
}

// WriteToFile stores the samples to the file whose name is given, as yaml or
// json depending on its extension
func (s *Sampler) WriteToFile(filename string) error {
	desc := samplerDesc{Interval: s.Interval.Micros(), Mode: s.Mode.String(), Series: make(map[string][]Sample)}
	for _, name := range s.Names() {
		desc.Series[name] = s.Series(name)
	}
	return writeDescFile(filename, desc)
}
