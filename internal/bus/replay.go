package bus

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"
)

// Replay republishes the records read from r through t. A speed > 0 keeps the
// recorded spacing divided by speed; speed <= 0 publishes without delay.
// It returns the number of messages published.
func Replay(ctx context.Context, r io.Reader, t Transport, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var prev time.Time
	n := 0
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(rec.Ts.Sub(prev)) / speed)
			if diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return n, ctx.Err()
				}
			}
		}
		if err := t.Publish(ctx, rec.Topic, rec.Bytes(), rec.QoS); err != nil {
			return n, err
		}
		n++
		prev = rec.Ts
	}
}

// ReplayFile opens a capture file and replays it.
func ReplayFile(ctx context.Context, path string, t Transport, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Replay(ctx, f, t, speed)
}
