package bus

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Recorder appends every published message to a JSONL capture file. It never
// delivers subscriptions; combine it with a real transport through Fanout.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
}

// NewRecorder creates the capture file at path.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Recorder{file: f, enc: json.NewEncoder(f), now: time.Now}, nil
}

func (r *Recorder) Connect(context.Context) error { return nil }

func (r *Recorder) Disconnect() {}

// Publish appends the message.
func (r *Recorder) Publish(_ context.Context, topic string, payload []byte, qos QoS) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(NewRecord(topic, payload, qos, r.now().UTC())); err != nil {
		return &TransportError{Op: "record", Topic: topic, Err: err}
	}
	return nil
}

func (r *Recorder) Subscribe(_ context.Context, topic string, _ Handler) (Subscription, error) {
	return nopSubscription(topic), nil
}

// Close closes the capture file.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}
