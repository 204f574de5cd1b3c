package catalog

import (
	"sort"
	"time"
)

// Sensor describes one vital-sign sensor known to the backend.
type Sensor struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	TopicSuffix string `json:"topic_suffix"`
}

// ThresholdConfig is the accepted [Min, Max] range for one sensor topic in a room.
type ThresholdConfig struct {
	SensorTopic string    `json:"sensor_topic"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Thresholds is an immutable, topic-keyed set of threshold configurations.
type Thresholds struct {
	byTopic map[string]ThresholdConfig
}

// NewThresholds builds a threshold set. When several configs share a topic the
// most recently updated one wins.
func NewThresholds(configs []ThresholdConfig) Thresholds {
	byTopic := make(map[string]ThresholdConfig, len(configs))
	for _, c := range configs {
		if prev, ok := byTopic[c.SensorTopic]; ok && prev.UpdatedAt.After(c.UpdatedAt) {
			continue
		}
		byTopic[c.SensorTopic] = c
	}
	return Thresholds{byTopic: byTopic}
}

// Lookup returns the configuration for a topic.
func (t Thresholds) Lookup(topic string) (ThresholdConfig, bool) {
	c, ok := t.byTopic[topic]
	return c, ok
}

// Len returns the number of configured topics.
func (t Thresholds) Len() int {
	return len(t.byTopic)
}

// Configs returns the configurations sorted by topic.
func (t Thresholds) Configs() []ThresholdConfig {
	out := make([]ThresholdConfig, 0, len(t.byTopic))
	for _, c := range t.byTopic {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SensorTopic < out[j].SensorTopic })
	return out
}

// Room is an occupied hospital room with its threshold configuration.
type Room struct {
	ID         int
	Name       string
	Occupied   bool
	Thresholds Thresholds
}

// WithThresholds returns a copy of the room carrying a new threshold set.
func (r Room) WithThresholds(t Thresholds) Room {
	r.Thresholds = t
	return r
}
