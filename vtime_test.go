package pcktsim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Time", func() {
	It("should convert units to microseconds", func() {
		Expect(TimeOf(5, Millisecond)).To(Equal(Time(5000)))
		Expect(TimeOf(1.5, Second)).To(Equal(Time(1500000)))
		Expect(TimeOf(2, Minute)).To(Equal(Time(120 * Second)))
		Expect(TimeOf(1, Hour)).To(Equal(OneHour))
		Expect(TimeOf(-3, Second).IsDynamic()).To(BeTrue())
	})

	It("should clamp subtraction at zero", func() {
		Expect(Time(10).Sub(Time(30))).To(Equal(Zero))
		Expect(Time(30).Sub(Time(10))).To(Equal(Time(20)))
	})

	It("should saturate addition at infinite", func() {
		Expect(Infinite.Add(OneSecond)).To(Equal(Infinite))
		Expect((Infinite - 5).Add(Time(10))).To(Equal(Infinite))
		Expect(OneSecond.Add(OneSecond)).To(Equal(2 * OneSecond))
	})

	It("should keep dynamic values dynamic", func() {
		Expect(Dynamic.Add(OneSecond).IsDynamic()).To(BeTrue())
		Expect(OneSecond.Sub(Dynamic).IsDynamic()).To(BeTrue())
		Expect(Zero.IsDynamic()).To(BeFalse())
	})

	It("should compare", func() {
		Expect(Time(1).Compare(Time(2))).To(Equal(-1))
		Expect(Time(2).Compare(Time(2))).To(Equal(0))
		Expect(Time(3).Compare(Time(2))).To(Equal(1))
		Expect(Time(1).Before(Time(2))).To(BeTrue())
		Expect(Time(1).After(Time(2))).To(BeFalse())
	})

	It("should leave epoch values untouched by arithmetic", func() {
		t := Zero
		t = t.Add(OneSecond)
		Expect(Zero).To(Equal(Time(0)))
		Expect(t).To(Equal(OneSecond))
	})

	It("should compute transmission times in whole microseconds", func() {
		pkt := SizeOf(40, Kilobyte)
		Expect(pkt.Bits()).To(Equal(327680.0))
		Expect(TransmissionTime(pkt, 70*float64(Megabit))).To(Equal(Time(4464)))
		Expect(TransmissionTime(pkt, 50*float64(Megabit))).To(Equal(Time(6250)))
	})
})

var _ = Describe("Packet", func() {
	type payload struct {
		hops []int64
	}

	It("should deep-copy its fields when cloned", func() {
		pkt := NewPacket(SizeOf(1, Kilobyte))
		Expect(pkt.SetField("flow", 7)).To(Succeed())
		Expect(pkt.SetField("meta", map[string]any{"route": []byte{1, 2}})).To(Succeed())

		cpy := pkt.Clone()
		Expect(cpy.SetField("flow", 8)).To(Succeed())
		meta, _ := cpy.Field("meta")
		meta.(map[string]any)["route"].([]byte)[0] = 9
		meta.(map[string]any)["extra"] = true
		cpy.DeleteField("missing")

		flow, _ := pkt.Field("flow")
		Expect(flow).To(Equal(7))
		orig, _ := pkt.Field("meta")
		Expect(orig.(map[string]any)).To(HaveLen(1))
		Expect(orig.(map[string]any)["route"]).To(Equal([]byte{1, 2}))
	})

	It("should refuse values it cannot clone", func() {
		pkt := NewPacket(SizeOf(1, Byte))
		Expect(pkt.SetField("p", &payload{})).NotTo(Succeed())
		Expect(pkt.FieldNames()).To(BeEmpty())
	})

	It("should accept fields on a packet built as a literal", func() {
		pkt := &Packet{Size: SizeOf(64, Byte)}
		Expect(pkt.SetField("flow", 3)).To(Succeed())
		flow, present := pkt.Field("flow")
		Expect(present).To(BeTrue())
		Expect(flow).To(Equal(3))
		Expect(pkt.Clone().FieldNames()).To(Equal([]string{"flow"}))
	})

	It("should clone through the Cloner capability", func() {
		pkt := NewPacket(SizeOf(1, Byte))
		route := &hopList{ids: []int64{1, 2}}
		Expect(pkt.SetField("route", route)).To(Succeed())

		cpy := pkt.Clone()
		v, _ := cpy.Field("route")
		v.(*hopList).ids[0] = 5
		Expect(route.ids).To(Equal([]int64{1, 2}))
	})

	It("should report dynamic sizes", func() {
		Expect(NewDynamicPacket().IsDynamic()).To(BeTrue())
		Expect(EncodedSize(DynamicSize, Ethernet, IPv4).IsDynamic()).To(BeTrue())
	})

	It("should add protocol overhead", func() {
		framed := EncodedSize(SizeOf(100, Byte), Ethernet, IPv4, UDP)
		Expect(framed.Bytes()).To(Equal(146.0))
	})
})

type hopList struct {
	ids []int64
}

func (h *hopList) Clone() any {
	return &hopList{ids: append([]int64(nil), h.ids...)}
}
