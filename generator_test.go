package pcktsim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// starTopology builds a hub, node 1, joined to each of nodes 2..n
func starTopology(n int, bps float64, delay Time) *Topology {
	topo := CreateTopology("star")
	for id := int64(1); id <= int64(n); id++ {
		_, err := topo.AddNode(id, "", HostKind, 0)
		Expect(err).NotTo(HaveOccurred())
	}
	for id := int64(2); id <= int64(n); id++ {
		_, err := topo.AddLink(LinkSpec{From: 1, To: id, Bandwidth: bps, Delay: delay, Kind: Duplex})
		Expect(err).NotTo(HaveOccurred())
	}
	return topo
}

var _ = Describe("TrafficGenerator", func() {
	var (
		rec *hookRecorder
		req *Packet
		rsp *Packet
	)

	BeforeEach(func() {
		rec = &hookRecorder{}
		req = NewPacket(SizeOf(1, Kilobyte))
		rsp = NewPacket(SizeOf(1, Kilobyte))
	})

	It("should validate its configuration", func() {
		_, err := NewTrafficGenerator(GeneratorConfig{Name: "bad", Active: true})
		Expect(err).To(HaveOccurred())

		_, err = NewTrafficGenerator(GeneratorConfig{Name: "bad", Departure: Dynamic, Response: rsp})
		Expect(err).To(HaveOccurred())

		_, err = NewTrafficGenerator(GeneratorConfig{Name: "bad", Window: -1, Request: req, Active: true})
		Expect(err).To(HaveOccurred())

		gen, err := NewTrafficGenerator(GeneratorConfig{Request: req, Active: true})
		Expect(err).NotTo(HaveOccurred())
		Expect(gen.Config().Lifetime).To(Equal(Infinite))
		Expect(gen.Config().Window).To(Equal(Unlimited))
		Expect(gen.Name()).To(Equal("generator"))
	})

	It("should never have more requests in flight than its window", func() {
		topo := lineTopology(2, 100*float64(Megabit), TimeOf(10, Millisecond))
		sim := CreateSimulator("window", topo)
		client, server := CreateAgent(1, "client"), CreateAgent(2, "server")
		gen, err := NewClientGenerator("client", TimeOf(200, Millisecond), TimeOf(1, Millisecond), 3, req, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.AddGenerator(gen)).To(Succeed())
		sink, err := NewSinkGenerator("sink", Zero, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(server.AddGenerator(sink)).To(Succeed())
		Expect(sim.AddAgents(client, server)).To(Succeed())
		client.Connect(server)

		sim.AcceptHook(HookFunc(func(ctx HookCtx) {
			if ctx.Pos != HookPosAfterEvent || gen.Current() == nil {
				return
			}
			Expect(gen.Current().InFlight()).To(BeNumerically("<=", 3))
		}))
		Expect(sim.Start(Infinite)).To(Succeed())

		Expect(gen.PeakInFlight()).To(Equal(3))
		Expect(gen.Received()).To(BeNumerically(">", 3))
		Expect(gen.Sent() - gen.Received()).To(BeNumerically("<=", 3))
		Expect(gen.Finished()).To(BeTrue())
		Expect(sim.Stats().TotalDropped()).To(BeZero())
	})

	It("should send each multicast window to every destination", func() {
		topo := starTopology(4, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("multicast", topo)
		src := CreateAgent(1, "source")
		gen, err := NewTrafficGenerator(GeneratorConfig{
			Name:         "fan-out",
			Lifetime:     TimeOf(20, Millisecond),
			Departure:    TimeOf(1, Millisecond),
			Window:       1,
			Request:      req,
			Response:     rsp,
			Active:       true,
			WaitResponse: true,
			Multicast:    true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.AddGenerator(gen)).To(Succeed())
		agents := []*Agent{src}
		for id := int64(2); id <= 4; id++ {
			sink, err := NewSinkGenerator("sink", Zero, rsp)
			Expect(err).NotTo(HaveOccurred())
			dst := CreateAgent(id, "")
			Expect(dst.AddGenerator(sink)).To(Succeed())
			agents = append(agents, dst)
		}
		Expect(sim.AddAgents(agents...)).To(Succeed())
		src.ConnectAll(agents[1:]...)

		var flows []uint64
		targets := make(map[uint64][]int64)
		packets := make(map[uint64][]*Packet)
		answered := make(map[uint64]int)
		sim.AcceptHook(HookFunc(func(ctx HookCtx) {
			if ctx.Pos != HookPosHop {
				return
			}
			hop := ctx.Detail.(HopRecord)
			if hop.Kind != RequestEvent || hop.From != 1 {
				return
			}
			if _, present := targets[hop.FlowID]; !present {
				flows = append(flows, hop.FlowID)
				answered[hop.FlowID] = gen.Received()
			}
			targets[hop.FlowID] = append(targets[hop.FlowID], hop.To)
			packets[hop.FlowID] = append(packets[hop.FlowID], ctx.Item.(*Event).Packet)
		}))

		Expect(sim.Start(Infinite)).To(Succeed())

		Expect(len(flows)).To(BeNumerically(">", 1))
		for idx, flow := range flows {
			Expect(targets[flow]).To(ConsistOf(int64(2), int64(3), int64(4)))
			Expect(answered[flow]).To(Equal(3 * idx))

			pkts := packets[flow]
			Expect(pkts[0]).NotTo(BeIdenticalTo(pkts[1]))
			Expect(pkts[1]).NotTo(BeIdenticalTo(pkts[2]))
			Expect(pkts[1].Size).To(Equal(pkts[0].Size))
			Expect(pkts[2].Size).To(Equal(pkts[0].Size))
		}
		Expect(gen.Sent()).To(Equal(3 * len(flows)))
		Expect(gen.Received()).To(Equal(gen.Sent()))
		Expect(gen.PeakInFlight()).To(Equal(3))
	})

	It("should cycle through its destinations in order", func() {
		topo := starTopology(4, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("round-robin", topo)
		src := CreateAgent(1, "source")
		gen, err := NewCBRGenerator("cbr", TimeOf(9, Millisecond), TimeOf(1, Millisecond), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(src.AddGenerator(gen)).To(Succeed())
		Expect(sim.AddAgents(src, CreateAgent(2, ""), CreateAgent(3, ""), CreateAgent(4, ""))).To(Succeed())
		src.ConnectAll(sim.Agent(2), sim.Agent(3), sim.Agent(4))
		sim.AcceptHook(rec)

		Expect(sim.Start(Infinite)).To(Succeed())

		order := []int64{}
		for _, ctx := range rec.at(HookPosHop) {
			hop := ctx.Detail.(HopRecord)
			if hop.From == 1 {
				order = append(order, hop.To)
			}
		}
		Expect(order).To(Equal([]int64{2, 3, 4, 2, 3, 4, 2, 3, 4}))
		Expect(gen.Sent()).To(Equal(9))
		Expect(gen.Finished()).To(BeTrue())
	})

	It("should answer a relayed request once every destination has responded", func() {
		// client 2 -> relay 1 -> servers 3 and 4
		topo := starTopology(4, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("relay", topo)
		client, relay := CreateAgent(2, "client"), CreateAgent(1, "relay")
		clientGen, err := NewClientGenerator("client", TimeOf(20, Millisecond), TimeOf(1, Millisecond), 1, req, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.AddGenerator(clientGen)).To(Succeed())
		relayGen, err := NewMulticastGenerator("relay", Zero, req, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(relay.AddGenerator(relayGen)).To(Succeed())

		servers := []*Agent{CreateAgent(3, "server-3"), CreateAgent(4, "server-4")}
		for _, server := range servers {
			sink, err := NewSinkGenerator("sink", Zero, rsp)
			Expect(err).NotTo(HaveOccurred())
			Expect(server.AddGenerator(sink)).To(Succeed())
		}
		Expect(sim.AddAgents(client, relay, servers[0], servers[1])).To(Succeed())
		client.Connect(relay)
		relay.ConnectAll(servers...)

		Expect(sim.Start(Infinite)).To(Succeed())

		Expect(clientGen.Sent()).To(BeNumerically(">", 1))
		Expect(clientGen.Received()).To(Equal(clientGen.Sent()))
		Expect(relayGen.Sent()).To(Equal(2 * clientGen.Sent()))
		Expect(relayGen.Received()).To(Equal(relayGen.Sent()))
		Expect(relayGen.NumSessions()).To(BeZero())
	})

	It("should answer directly when relaying to no one", func() {
		topo := lineTopology(2, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("empty-relay", topo)
		client, relay := CreateAgent(1, "client"), CreateAgent(2, "relay")
		clientGen, err := NewClientGenerator("client", TimeOf(5, Millisecond), TimeOf(1, Millisecond), 1, req, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(client.AddGenerator(clientGen)).To(Succeed())
		relayGen, err := NewMulticastGenerator("relay", Zero, req, rsp)
		Expect(err).NotTo(HaveOccurred())
		Expect(relay.AddGenerator(relayGen)).To(Succeed())
		Expect(sim.AddAgents(client, relay)).To(Succeed())
		client.Connect(relay)

		Expect(sim.Start(Infinite)).To(Succeed())
		Expect(clientGen.Received()).To(Equal(clientGen.Sent()))
		Expect(relayGen.Sent()).To(BeZero())
	})

	It("should reject a fixed packet of unresolved size", func() {
		_, err := NewCBRGenerator("dynamic", Zero, TimeOf(1, Millisecond), NewDynamicPacket())
		var unresolved *UnresolvedDynamicSizeError
		Expect(errors.As(err, &unresolved)).To(BeTrue())
		Expect(unresolved.Generator).To(Equal("dynamic"))

		_, err = NewSinkGenerator("echo", Zero, NewDynamicPacket())
		Expect(errors.As(err, &unresolved)).To(BeTrue())
	})

	It("should fail when a packet maker leaves the size unresolved", func() {
		topo := lineTopology(2, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("dynamic", topo)
		src := CreateAgent(1, "")
		gen, err := NewTrafficGenerator(GeneratorConfig{
			Name:      "dynamic",
			Departure: TimeOf(1, Millisecond),
			Active:    true,
			MakePacket: func(gen *TrafficGenerator, kind EventKind, trigger *Event, dst *Agent) (*Packet, error) {
				return NewDynamicPacket(), nil
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.AddGenerator(gen)).To(Succeed())
		Expect(sim.AddAgents(src, CreateAgent(2, ""))).To(Succeed())
		src.Connect(sim.Agent(2))

		err = sim.Start(Infinite)
		var unresolved *UnresolvedDynamicSizeError
		Expect(errors.As(err, &unresolved)).To(BeTrue())
		Expect(unresolved.Generator).To(Equal("dynamic"))
		Expect(IsFatal(err)).To(BeTrue())
	})

	It("should let a packet maker resolve sizes per destination", func() {
		topo := starTopology(3, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("maker", topo)
		src := CreateAgent(1, "")
		gen, err := NewTrafficGenerator(GeneratorConfig{
			Name:      "maker",
			Lifetime:  TimeOf(4, Millisecond),
			Departure: TimeOf(1, Millisecond),
			Active:    true,
			Protocols: []Protocol{UDP},
			MakePacket: func(gen *TrafficGenerator, kind EventKind, trigger *Event, dst *Agent) (*Packet, error) {
				return NewPacket(SizeOf(float64(100*dst.ID), Byte)), nil
			},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.AddGenerator(gen)).To(Succeed())
		Expect(sim.AddAgents(src, CreateAgent(2, ""), CreateAgent(3, ""))).To(Succeed())
		src.ConnectAll(sim.Agent(2), sim.Agent(3))
		sim.AcceptHook(rec)

		Expect(sim.Start(Infinite)).To(Succeed())

		delivered := rec.at(HookPosDelivered)
		Expect(delivered).To(HaveLen(4))
		for _, ctx := range delivered {
			evt := ctx.Item.(*Event)
			Expect(evt.Packet.Size.Bytes()).To(Equal(float64(100*evt.Dest.ID + 8)))
		}
	})

	It("should finish when its departure function says so", func() {
		topo := lineTopology(2, 100*float64(Megabit), TimeOf(1, Millisecond))
		sim := CreateSimulator("departures", topo)
		src := CreateAgent(1, "")
		gen, err := NewTrafficGenerator(GeneratorConfig{
			Name:      "five",
			Departure: Dynamic,
			DepartureFunc: func(gen *TrafficGenerator, now Time) (Time, bool) {
				return TimeOf(float64(gen.Sent()+1), Millisecond), gen.Sent() < 5
			},
			Request: req,
			Active:  true,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(src.AddGenerator(gen)).To(Succeed())
		Expect(sim.AddAgents(src, CreateAgent(2, ""))).To(Succeed())
		src.Connect(sim.Agent(2))
		sim.AcceptHook(rec)

		Expect(sim.Start(Infinite)).To(Succeed())

		Expect(gen.Sent()).To(Equal(5))
		Expect(gen.Finished()).To(BeTrue())
		Expect(gen.Clock()).To(Equal(TimeOf(15, Millisecond)))
		Expect(rec.at(HookPosDelivered)).To(HaveLen(5))
	})

	It("should stay silent without destinations", func() {
		gen, err := NewCBRGenerator("lonely", Zero, TimeOf(1, Millisecond), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(CreateAgent(1, "").AddGenerator(gen)).To(Succeed())

		events, err := gen.Generate(Zero, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
		Expect(gen.Sent()).To(BeZero())
	})

	It("should not belong to two agents", func() {
		gen, err := NewCBRGenerator("shared", Zero, TimeOf(1, Millisecond), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(CreateAgent(1, "").AddGenerator(gen)).To(Succeed())
		Expect(CreateAgent(2, "").AddGenerator(gen)).NotTo(Succeed())
	})
})
