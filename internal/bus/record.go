package bus

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the JSON line form of a published message used by the print-only
// transport, the file recorder and replay.
type Record struct {
	Topic   string          `json:"topic"`
	QoS     QoS             `json:"qos"`
	Payload json.RawMessage `json:"payload"`
	Quoted  bool            `json:"quoted,omitempty"`
	Ts      time.Time       `json:"ts"`
}

// NewRecord builds a record. Payloads that are not valid JSON are stored as a
// JSON string and flagged as quoted.
func NewRecord(topic string, payload []byte, qos QoS, ts time.Time) Record {
	rec := Record{Topic: topic, QoS: qos, Ts: ts}
	if json.Valid(payload) {
		rec.Payload = json.RawMessage(append([]byte(nil), payload...))
		return rec
	}
	quoted, _ := json.Marshal(string(payload))
	rec.Payload = quoted
	rec.Quoted = true
	return rec
}

// Bytes returns the payload as it was published.
func (r Record) Bytes() []byte {
	if r.Quoted {
		var s string
		if err := json.Unmarshal(r.Payload, &s); err == nil {
			return []byte(s)
		}
	}
	return []byte(r.Payload)
}

// MarshalText implements encoding.TextMarshaler.
func (q QoS) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *QoS) UnmarshalText(text []byte) error {
	for _, candidate := range []QoS{BestEffort, Acknowledged, Reliable} {
		if candidate.String() == string(text) {
			*q = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown qos %q", text)
}
