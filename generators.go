package pcktsim

// NewCBRGenerator creates a constant bit rate source: it sends request every
// interval for its whole lifetime, never waiting for answers
func NewCBRGenerator(name string, lifetime, interval Time, request *Packet) (*TrafficGenerator, error) {
	return NewTrafficGenerator(GeneratorConfig{
		Name:      name,
		Lifetime:  lifetime,
		Departure: interval,
		Window:    0,
		Request:   request,
		Active:    true,
	})
}

// NewSinkGenerator creates a passive generator answering every request with response
func NewSinkGenerator(name string, lifetime Time, response *Packet) (*TrafficGenerator, error) {
	return NewTrafficGenerator(GeneratorConfig{
		Name:         name,
		Lifetime:     lifetime,
		Departure:    Zero,
		Response:     response,
		WaitResponse: true,
	})
}

// NewClientGenerator creates a client keeping at most window requests
// unanswered; a new window opens once every request of the previous one is answered
func NewClientGenerator(name string, lifetime, departure Time, window int, request, response *Packet) (*TrafficGenerator, error) {
	return NewTrafficGenerator(GeneratorConfig{
		Name:         name,
		Lifetime:     lifetime,
		Departure:    departure,
		Window:       window,
		Request:      request,
		Response:     response,
		Active:       true,
		WaitResponse: true,
	})
}

// NewMulticastGenerator creates a passive relay: a request it receives is
// forwarded to every destination, and answered once all of them have responded
func NewMulticastGenerator(name string, lifetime Time, request, response *Packet) (*TrafficGenerator, error) {
	return NewTrafficGenerator(GeneratorConfig{
		Name:          name,
		Lifetime:      lifetime,
		Departure:     Zero,
		Request:       request,
		Response:      response,
		DelayResponse: true,
		WaitResponse:  true,
		Multicast:     true,
	})
}
