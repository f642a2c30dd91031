package pcktsim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Routing", func() {
	var topo *Topology

	addLink := func(from, to int64, delayMs float64, kind LinkKind) {
		_, err := topo.AddLink(LinkSpec{From: from, To: to, Bandwidth: float64(Megabit),
			Delay: TimeOf(delayMs, Millisecond), Kind: kind})
		Expect(err).NotTo(HaveOccurred())
	}

	//   1 --1ms-- 2 --1ms-- 4
	//   |                   |
	//   +--1ms--- 3 --5ms---+
	BeforeEach(func() {
		topo = CreateTopology("diamond")
		for _, id := range []int64{1, 2, 3, 4} {
			_, err := topo.AddNode(id, "", RouterKind, -1)
			Expect(err).NotTo(HaveOccurred())
		}
		addLink(1, 2, 1, Duplex)
		addLink(2, 4, 1, Duplex)
		addLink(1, 3, 1, Duplex)
		addLink(3, 4, 5, Duplex)
	})

	It("should follow the smallest propagation delay", func() {
		route, err := topo.Route(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(route).To(Equal([]int64{1, 2, 4}))

		next, err := topo.NextHop(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(int64(2)))

		delay, err := topo.RouteDelay(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(delay).To(Equal(TimeOf(2, Millisecond)))
	})

	It("should recompute routes when a link fails and recovers", func() {
		_, err := topo.Route(1, 4)
		Expect(err).NotTo(HaveOccurred())
		version := topo.Version()

		Expect(topo.SetLinkActive(2, 4, false)).To(Succeed())
		Expect(topo.Version()).NotTo(Equal(version))
		route, err := topo.Route(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(route).To(Equal([]int64{1, 3, 4}))

		// the opposite direction is untouched
		back, err := topo.Route(4, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(back).To(Equal([]int64{4, 2, 1}))

		Expect(topo.SetLinkActive(2, 4, true)).To(Succeed())
		route, err = topo.Route(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(route).To(Equal([]int64{1, 2, 4}))
	})

	It("should route around a failed node", func() {
		Expect(topo.SetNodeActive(2, false)).To(Succeed())
		route, err := topo.Route(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(route).To(Equal([]int64{1, 3, 4}))

		_, err = topo.Route(1, 2)
		Expect(errors.Is(err, ErrNoRoute)).To(BeTrue())
	})

	It("should report unreachable destinations without failing", func() {
		Expect(topo.SetLinkActive(2, 4, false)).To(Succeed())
		Expect(topo.SetLinkActive(3, 4, false)).To(Succeed())
		_, err := topo.NextHop(1, 4)
		Expect(err).To(MatchError(ErrNoRoute))
		Expect(IsFatal(err)).To(BeFalse())
	})

	It("should break ties by the lowest node id", func() {
		Expect(topo.SetLinkActive(3, 4, false)).To(Succeed())
		addLink(3, 4, 1, Simplex)
		for i := 0; i < 10; i++ {
			route, err := topo.Route(1, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(route).To(Equal([]int64{1, 2, 4}))
		}
	})

	Context("with zero-delay links", func() {
		routeOf := func(src, dst int64) []int64 {
			done := make(chan []int64, 1)
			go func() {
				route, _ := topo.Route(src, dst)
				done <- route
			}()
			var route []int64
			Eventually(done, "1s").Should(Receive(&route))
			return route
		}

		addLinkUs := func(from, to int64, delayUs float64, kind LinkKind) {
			_, err := topo.AddLink(LinkSpec{From: from, To: to, Bandwidth: float64(Megabit),
				Delay: TimeOf(delayUs, Microsecond), Kind: kind})
			Expect(err).NotTo(HaveOccurred())
		}

		BeforeEach(func() {
			topo = CreateTopology("flat")
			for _, id := range []int64{10, 1, 2, 3, 5, 6} {
				_, err := topo.AddNode(id, "", HostKind, -1)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should not loop between equally distant nodes", func() {
			addLinkUs(10, 1, 5, Duplex)
			addLinkUs(10, 2, 5, Duplex)
			addLinkUs(1, 2, 0, Duplex)
			addLinkUs(1, 3, 1, Duplex)

			Expect(routeOf(10, 3)).To(Equal([]int64{10, 1, 3}))
			Expect(routeOf(10, 2)).To(Equal([]int64{10, 1, 2}))
			Expect(routeOf(3, 10)).To(Equal([]int64{3, 1, 10}))
		})

		It("should reach a node whose only predecessor is equally distant", func() {
			addLinkUs(10, 5, 5, Simplex)
			addLinkUs(5, 1, 0, Simplex)
			addLinkUs(1, 6, 0, Simplex)

			Expect(routeOf(10, 1)).To(Equal([]int64{10, 5, 1}))
			Expect(routeOf(10, 6)).To(Equal([]int64{10, 5, 1, 6}))
		})
	})

	It("should reject a negative propagation delay", func() {
		_, err := topo.AddLink(LinkSpec{From: 1, To: 4, Bandwidth: float64(Megabit),
			Delay: TimeOf(-1, Millisecond)})
		Expect(err).To(HaveOccurred())
		Expect(topo.Link(1, 4)).To(BeNil())

		next, err := topo.NextHop(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(int64(2)))
	})

	It("should reject unknown nodes", func() {
		_, err := topo.NextHop(1, 99)
		var unknown *UnknownNodeError
		Expect(errors.As(err, &unknown)).To(BeTrue())
		Expect(unknown.NodeID).To(Equal(int64(99)))

		err = topo.SetLinkActive(1, 4, false)
		var noLink *UnknownLinkError
		Expect(errors.As(err, &noLink)).To(BeTrue())
	})

	It("should look up only active links", func() {
		Expect(topo.Link(1, 2)).NotTo(BeNil())
		Expect(topo.Link(2, 1)).NotTo(BeNil())
		Expect(topo.Link(1, 4)).To(BeNil())
		Expect(topo.SetLinkActive(1, 2, false)).To(Succeed())
		Expect(topo.Link(1, 2)).To(BeNil())
		Expect(topo.Link(2, 1)).NotTo(BeNil())
	})

	It("should show the names along a path", func() {
		path, err := topo.ShowPath(1, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("router-1,router-2,router-4"))
	})

	It("should give kinds their default processing delay", func() {
		node, err := topo.Node(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(node.Tcalc).To(Equal(Time(100)))
		Expect(node.Index()).To(Equal(0))
	})
})
