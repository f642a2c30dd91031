package pcktsim

import (
	"fmt"
	"strings"
)

// Protocol is one layer of a packet's framing.  The kernel never looks at
// header contents, it only needs the overhead each layer adds.
type Protocol int

const (
	Ethernet Protocol = iota
	IPv4
	TCP
	UDP
)

type protoBehavior struct {
	name string

	// header plus trailer, in bytes
	overhead int
}

var protoTable = map[Protocol]protoBehavior{
	Ethernet: {name: "ethernet", overhead: 18},
	IPv4:     {name: "ip", overhead: 20},
	TCP:      {name: "tcp", overhead: 20},
	UDP:      {name: "udp", overhead: 8},
}

// ParseProtocol maps a protocol name to its Protocol value
func ParseProtocol(name string) (Protocol, error) {
	for proto, behavior := range protoTable {
		if strings.EqualFold(behavior.name, name) {
			return proto, nil
		}
	}
	if strings.EqualFold(name, "ipv4") {
		return IPv4, nil
	}
	return Ethernet, fmt.Errorf("unknown protocol %q", name)
}

func (p Protocol) String() string {
	return protoTable[p].name
}

// Overhead returns the bytes added by the protocol's framing
func (p Protocol) Overhead() int {
	return protoTable[p].overhead
}

// EncodedSize returns the size of a payload once wrapped by the given stack
// of protocols.  A dynamic payload stays dynamic.
func EncodedSize(payload Size, stack ...Protocol) Size {
	if payload.IsDynamic() || len(stack) == 0 {
		return payload
	}
	bytes := payload.Bytes()
	for _, proto := range stack {
		bytes += float64(proto.Overhead())
	}
	return SizeOf(bytes, Byte)
}
