package pcktsim

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gomock "go.uber.org/mock/gomock"
)

var _ = Describe("EventScheduler", func() {
	var (
		mockCtrl *gomock.Controller
		topo     *Topology
		sched    *EventScheduler
		client   *Agent
		server   *Agent
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		topo = lineTopology(2, 100*float64(Megabit), TimeOf(1, Millisecond))
		sched = CreateEventScheduler(topo)
		client = CreateAgent(1, "client")
		server = CreateAgent(2, "server")
		Expect(topo.attachAgent(client)).To(Succeed())
		Expect(topo.attachAgent(server)).To(Succeed())
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	request := func(at Time) *Event {
		evt, err := NewRequest(client, server, NewPacket(SizeOf(100, Byte)), at, 0)
		Expect(err).NotTo(HaveOccurred())
		return evt
	}

	It("should execute events in non-decreasing time order", func() {
		for i := 0; i < 200; i++ {
			Expect(sched.Schedule(request(Time(rand.Int63n(50000))))).To(Succeed())
		}
		times := []Time{}
		sched.AcceptHook(HookFunc(func(ctx HookCtx) {
			if ctx.Pos == HookPosBeforeEvent {
				times = append(times, ctx.Now)
			}
		}))

		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())
		Expect(times).To(HaveLen(400))
		for i := 1; i < len(times); i++ {
			Expect(times[i]).To(BeNumerically(">=", times[i-1]))
		}
		Expect(sched.Stats().Delivered).To(Equal(uint64(200)))
	})

	It("should reject an event earlier than the clock", func() {
		Expect(sched.Schedule(request(TimeOf(10, Millisecond)))).To(Succeed())
		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())
		Expect(sched.Now()).To(BeNumerically(">", TimeOf(10, Millisecond)))

		err := sched.Schedule(request(TimeOf(5, Millisecond)))
		var violation *CausalityViolationError
		Expect(errors.As(err, &violation)).To(BeTrue())
		Expect(violation.EventTime).To(Equal(TimeOf(5, Millisecond)))
		Expect(sched.Len()).To(Equal(0))
	})

	It("should detect a causality violation when popping", func() {
		Expect(sched.Schedule(request(TimeOf(10, Millisecond)))).To(Succeed())
		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())

		stale := request(TimeOf(10, Millisecond))
		sched.queue.Push(stale)
		err := sched.RunUntilDurationOrEmpty(Infinite)
		var violation *CausalityViolationError
		Expect(errors.As(err, &violation)).To(BeTrue())
		Expect(violation.EventID).To(Equal(stale.ID()))
		Expect(IsFatal(err)).To(BeTrue())
	})

	It("should discard events past the horizon", func() {
		Expect(sched.Schedule(request(0), request(TimeOf(50, Millisecond)))).To(Succeed())
		Expect(sched.RunUntilDurationOrEmpty(TimeOf(20, Millisecond))).To(Succeed())

		stats := sched.Stats()
		Expect(stats.Delivered).To(Equal(uint64(1)))
		Expect(stats.Discarded).To(Equal(uint64(1)))
		Expect(sched.Len()).To(Equal(0))
	})

	It("should cancel a queued event", func() {
		evt := request(TimeOf(1, Millisecond))
		Expect(sched.Schedule(evt)).To(Succeed())
		Expect(sched.Remove(evt)).To(BeTrue())
		Expect(sched.Remove(evt)).To(BeFalse())
		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())
		Expect(sched.Stats().Executed).To(BeZero())
	})

	It("should refuse to queue an event twice", func() {
		evt := request(0)
		Expect(sched.Schedule(evt)).To(Succeed())
		Expect(sched.Schedule(evt)).NotTo(Succeed())
	})

	It("should invoke hooks around every event", func() {
		hook := NewMockHook(mockCtrl)
		sched.AcceptHook(hook)
		hook.EXPECT().Func(gomock.Any()).Do(func(ctx HookCtx) {
			Expect(ctx.Pos).To(BeElementOf(HookPosBeforeEvent, HookPosAfterEvent, HookPosHop, HookPosDelivered))
		}).Times(6)

		Expect(sched.Schedule(request(0))).To(Succeed())
		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())
	})

	It("should stop when asked", func() {
		sched.AcceptHook(HookFunc(func(ctx HookCtx) {
			if ctx.Pos == HookPosAfterEvent {
				sched.Stop()
			}
		}))
		Expect(sched.Schedule(request(0), request(1))).To(Succeed())
		Expect(sched.RunUntilDurationOrEmpty(Infinite)).To(Succeed())
		Expect(sched.Stats().Executed).To(Equal(uint64(1)))
		Expect(sched.Len()).To(Equal(2))
	})
})
