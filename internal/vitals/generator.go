package vitals

// Rand is the randomness source used by Step. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Step returns the next vital-sign state for the given mode.
// High adds a uniform drift per field, Low subtracts it, Normal and Stable keep
// the values. Every field is clamped to its physiological limits afterwards.
func Step(state State, mode Mode, rng Rand) State {
	next := state
	for _, f := range Fields {
		v := state.Get(f)
		switch mode {
		case High:
			v += uniform(rng, Drift[f])
		case Low:
			v -= uniform(rng, Drift[f])
		}
		next.set(f, Limits[f].Clamp(v))
	}
	return next
}

// uniform draws a value in [r.Min, r.Max).
func uniform(rng Rand, r Range) float64 {
	return rng.Float64()*(r.Max-r.Min) + r.Min
}
