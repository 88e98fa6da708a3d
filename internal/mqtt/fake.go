package mqtt

// FakePublisher records published traffic for test assertions and feeds
// scripted inbound commands.
type FakePublisher struct {
	// Keepalives contains all heartbeats that were published.
	Keepalives []Keepalive

	// Statuses contains the status payloads that were published.
	Statuses [][]byte

	// Configs contains all parameter reports that were published.
	Configs []ConfigReport

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	inbox chan []byte
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{inbox: make(chan []byte, inboxSize)}
}

// PublishKeepalive records the heartbeat.
func (f *FakePublisher) PublishKeepalive(ka Keepalive) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Keepalives = append(f.Keepalives, ka)
	return nil
}

// PublishStatus records the status payload.
func (f *FakePublisher) PublishStatus(payload []byte) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Statuses = append(f.Statuses, payload)
	return nil
}

// PublishConfig records the report.
func (f *FakePublisher) PublishConfig(report ConfigReport) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Configs = append(f.Configs, report)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Inject queues an inbound command envelope.
func (f *FakePublisher) Inject(payload string) {
	f.inbox <- []byte(payload)
}

// Commands returns the channel fed by Inject.
func (f *FakePublisher) Commands() <-chan []byte {
	return f.inbox
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded traffic.
func (f *FakePublisher) Reset() {
	f.Keepalives = nil
	f.Statuses = nil
	f.Configs = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
