package pcktsim

import (
	"fmt"
	"strings"
)

// SizeUnit is the number of bits in one unit of a data-size scale.
// Multiples are powers of 1024.
type SizeUnit int64

const (
	Bit      SizeUnit = 1
	Byte     SizeUnit = 8
	Kilobit  SizeUnit = 1 << 10
	Kilobyte SizeUnit = 8 << 10
	Megabit  SizeUnit = 1 << 20
	Megabyte SizeUnit = 8 << 20
	Gigabit  SizeUnit = 1 << 30
	Gigabyte SizeUnit = 8 << 30
)

var unitByName = map[string]SizeUnit{
	"b": Bit, "B": Byte,
	"Kb": Kilobit, "KB": Kilobyte,
	"Mb": Megabit, "MB": Megabyte,
	"Gb": Gigabit, "GB": Gigabyte,
}

var nameByUnit = map[SizeUnit]string{
	Bit: "b", Byte: "B",
	Kilobit: "Kb", Kilobyte: "KB",
	Megabit: "Mb", Megabyte: "MB",
	Gigabit: "Gb", Gigabyte: "GB",
}

// ParseSizeUnit maps a unit symbol ("B", "KB", "Mb", ...) to its SizeUnit
func ParseSizeUnit(name string) (SizeUnit, error) {
	unit, present := unitByName[strings.TrimSpace(name)]
	if !present {
		return 0, fmt.Errorf("unknown size unit %q", name)
	}
	return unit, nil
}

// Size is a quantity of data, e.g. the length of a packet
type Size struct {
	Value float64  `json:"value" yaml:"value"`
	Unit  SizeUnit `json:"unit" yaml:"unit"`
}

// DynamicSize is the sentinel for a size the generator decides at send time
var DynamicSize = Size{Value: -1, Unit: Byte}

// SizeOf is a constructor
func SizeOf(value float64, unit SizeUnit) Size {
	return Size{Value: value, Unit: unit}
}

// Bits returns the size expressed in bits
func (s Size) Bits() float64 {
	return s.Value * float64(s.Unit)
}

// Bytes returns the size expressed in bytes
func (s Size) Bytes() float64 {
	return s.Bits() / float64(Byte)
}

// IsDynamic is true for a size that has not been resolved
func (s Size) IsDynamic() bool {
	return s.Value < 0
}

func (s Size) String() string {
	if s.IsDynamic() {
		return "dynamic"
	}
	name, present := nameByUnit[s.Unit]
	if !present {
		return fmt.Sprintf("%gb", s.Bits())
	}
	return fmt.Sprintf("%g%s", s.Value, name)
}

// TransmissionTime returns the serialization delay of a packet of the given
// size over a link of bandwidth bps (bits per second), truncated to the microsecond
func TransmissionTime(size Size, bps float64) Time {
	if bps <= 0 {
		return Infinite
	}
	return Time(size.Bits() * float64(Second) / bps)
}
