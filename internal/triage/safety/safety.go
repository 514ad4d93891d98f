// Package safety implements the deterministic hazard detector that runs
// before anything else on every turn. Life-safety responses must never
// depend on the generation service being up, so emergency matches return a
// fixed script and bypass generation entirely.
package safety

import "strings"

// Result is the outcome of a hazard check over one message.
type Result struct {
	IsEmergency      bool
	Flags            []string
	EmergencyMessage string
}

// hazardGroup is one ordered entry in the detection table. Emergency groups
// short-circuit on first match; urgent groups only contribute flags.
type hazardGroup struct {
	flag      string
	emergency bool
	script    string
	keywords  []string
}

const (
	gasScript = "This sounds like a possible gas leak. Leave the building immediately, " +
		"do not touch any light switches or electrical devices, do not use open flames, " +
		"and call emergency services (911) from outside. Campus facilities has been alerted."

	coScript = "Carbon monoxide is dangerous and invisible. Get everyone outside to fresh air " +
		"right away, do not re-enter the building, and call emergency services (911). " +
		"Campus facilities has been alerted."

	fireScript = "If you see smoke or fire, evacuate the building now using the stairs, " +
		"pull the nearest fire alarm on your way out, and call emergency services (911) " +
		"from a safe location. Campus facilities has been alerted."

	electricalWaterScript = "Water near electrical equipment is an electrocution risk. " +
		"Keep everyone away from the area, do not touch switches, outlets, or anything wet, " +
		"and call emergency services (911) if anyone is in danger. Campus facilities has been alerted."
)

// hazardGroups is evaluated in order. Earlier groups take precedence when a
// message matches more than one.
var hazardGroups = []hazardGroup{
	{
		flag:      "gas_leak",
		emergency: true,
		script:    gasScript,
		keywords: []string{
			"gas smell", "smell gas", "smells like gas", "smell of gas",
			"gas leak", "gas leaking", "natural gas", "rotten egg smell",
		},
	},
	{
		flag:      "carbon_monoxide",
		emergency: true,
		script:    coScript,
		keywords: []string{
			"carbon monoxide", "co alarm", "co detector",
		},
	},
	{
		flag:      "fire_hazard",
		emergency: true,
		script:    fireScript,
		keywords: []string{
			"fire", "smoke", "burning smell", "something burning",
			"sparks", "sparking", "smell of burning",
		},
	},
	{
		flag:      "electrical_water_hazard",
		emergency: true,
		script:    electricalWaterScript,
		keywords: []string{
			"water near outlet", "outlet is wet", "wet outlet",
			"water and electric", "water on the outlet", "water in the light",
			"electrical and water", "water near the breaker",
		},
	},
	{
		flag:      "exposed_wiring",
		emergency: false,
		keywords: []string{
			"exposed wire", "exposed wiring", "bare wire", "bare wires",
			"wires hanging", "wire hanging out",
		},
	},
	{
		flag:      "flooding",
		emergency: false,
		keywords: []string{
			"flooding", "flooded", "water everywhere", "water pouring",
			"ceiling leaking", "burst pipe",
		},
	},
	{
		flag:      "no_heat",
		emergency: false,
		keywords: []string{
			"no heat", "heat not working", "heater broken", "no heating",
			"radiator not working",
		},
	},
	{
		flag:      "no_cooling",
		emergency: false,
		keywords: []string{
			"no ac", "ac not working", "no air conditioning",
			"air conditioning broken", "ac is broken",
		},
	},
}

// Check runs the ordered hazard tables over the message. Pure function of
// the message text: no state, no history.
func Check(message string) Result {
	lowered := strings.ToLower(message)

	result := Result{Flags: []string{}}
	for _, group := range hazardGroups {
		if !matchesAny(lowered, group.keywords) {
			continue
		}

		result.Flags = append(result.Flags, group.flag)

		// First emergency match wins; the fixed script replaces any
		// generated response for this turn.
		if group.emergency && !result.IsEmergency {
			result.IsEmergency = true
			result.EmergencyMessage = group.script
		}
	}

	return result
}

func matchesAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
