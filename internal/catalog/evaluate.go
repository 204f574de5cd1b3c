package catalog

// Verdict is the outcome of checking one value against a room's thresholds.
type Verdict struct {
	Breach bool
	Min    float64
	Max    float64
}

// Evaluate checks value against the configuration for topic. A topic without
// configuration is always in range.
func (t Thresholds) Evaluate(topic string, value float64) Verdict {
	c, ok := t.byTopic[topic]
	if !ok {
		return Verdict{}
	}
	return Verdict{
		Breach: value < c.Min || value > c.Max,
		Min:    c.Min,
		Max:    c.Max,
	}
}
