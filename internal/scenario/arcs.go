package scenario

import "time"

// BuiltIn returns the predefined patient scenarios.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"deterioration": {
			Name:        "Deterioration",
			Description: "A stable patient slowly deteriorates, recovers under treatment and stabilises.",
			Phases: []Phase{
				{Name: "admission", Description: "Patient arrives with baseline vitals.", Mode: "stable", Duration: 30 * time.Second},
				{Name: "observation", Description: "Vitals hold steady.", Mode: "normal", Duration: time.Minute},
				{Name: "crisis", Description: "Fever, hypertension and tachycardia develop.", Mode: "high", Duration: 2 * time.Minute},
				{Name: "treatment", Description: "Medication brings the values down.", Mode: "low", Duration: 30 * time.Second},
				{Name: "recovery", Description: "Patient returns to baseline.", Mode: "stable", Duration: time.Minute},
			},
		},
		"hypotension": {
			Name:        "Hypotension",
			Description: "Repeated hypotensive episodes separated by stable periods.",
			Loop:        true,
			Phases: []Phase{
				{Name: "baseline", Description: "Vitals at baseline.", Mode: "stable", Duration: time.Minute},
				{Name: "episode", Description: "Blood pressure and oxygenation fall.", Mode: "low", Duration: 90 * time.Second},
				{Name: "rest", Description: "Patient is stabilised.", Mode: "normal", Duration: time.Minute},
			},
		},
	}
}
