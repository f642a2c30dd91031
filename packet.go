package pcktsim

import (
	"fmt"
	"sort"
)

// A Cloner is a payload value able to produce an independent copy of itself.
// Packet fields holding anything other than plain scalar values must implement it.
type Cloner interface {
	Clone() any
}

// Packet is the unit of data moved across the topology.  Besides its size it
// carries an open map of fields (flow identity, routing metadata, user payload).
type Packet struct {
	Size   Size
	fields map[string]any
}

// NewPacket is a constructor
func NewPacket(size Size) *Packet {
	return &Packet{Size: size, fields: make(map[string]any)}
}

// NewDynamicPacket creates a packet whose size must be resolved before it is sent
func NewDynamicPacket() *Packet {
	return NewPacket(DynamicSize)
}

// IsDynamic reports whether the packet size is still unresolved
func (p *Packet) IsDynamic() bool {
	return p.Size.IsDynamic()
}

// Bits returns the packet length in bits
func (p *Packet) Bits() float64 {
	return p.Size.Bits()
}

// SetField stores a payload value.  Only scalars, byte slices, nested field maps
// and Cloner values are accepted, so that Clone can always produce an
// independent copy.
func (p *Packet) SetField(key string, value any) error {
	if !clonable(value) {
		return fmt.Errorf("packet field %q: value of type %T is not clonable", key, value)
	}
	if p.fields == nil {
		p.fields = make(map[string]any)
	}
	p.fields[key] = value
	return nil
}

// Field returns the value stored under key
func (p *Packet) Field(key string) (any, bool) {
	v, present := p.fields[key]
	return v, present
}

// DeleteField removes a field
func (p *Packet) DeleteField(key string) {
	delete(p.fields, key)
}

// FieldNames returns the field keys in sorted order
func (p *Packet) FieldNames() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the packet
func (p *Packet) Clone() *Packet {
	cpy := &Packet{Size: p.Size, fields: make(map[string]any, len(p.fields))}
	for key, value := range p.fields {
		cpy.fields[key] = cloneValue(value)
	}
	return cpy
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet(%s, %d fields)", p.Size, len(p.fields))
}

func clonable(value any) bool {
	switch v := value.(type) {
	case nil, bool, string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64,
		Time, Size, []byte, Cloner:
		return true
	case map[string]any:
		for _, inner := range v {
			if !clonable(inner) {
				return false
			}
		}
		return true
	}
	return false
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case Cloner:
		return v.Clone()
	case []byte:
		return append([]byte(nil), v...)
	case map[string]any:
		cpy := make(map[string]any, len(v))
		for key, inner := range v {
			cpy[key] = cloneValue(inner)
		}
		return cpy
	}
	return value
}
