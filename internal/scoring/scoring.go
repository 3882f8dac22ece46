// Package scoring estimates script balance from the catalog and past
// play. Output is advisory; nothing here gates gameplay.
package scoring

import (
	"math"

	"github.com/louisbranch/grimoire/internal/catalog"
)

// Component weights for the composite score. Momentum is reported
// alongside but never weighted in.
const (
	WeightInformationGain = 0.35
	WeightControlBalance  = 0.25
	WeightTimeCushion     = 0.20
	WeightRedundancy      = 0.15
	WeightVolatility      = 0.05
)

// momentumWindow is how many recent games feed the momentum term.
const momentumWindow = 5

// PlayRecord summarizes one finished game of a script.
type PlayRecord struct {
	GameID      string
	Winner      catalog.Alignment
	Days        int
	PlayerCount int
	Executions  int
}

// Metrics is the balance estimate for one script. Every component is
// normalized to [0, 100]; Momentum is in [-100, 100], positive when
// good has been winning recently.
type Metrics struct {
	InformationGain float64
	ControlBalance  float64
	TimeCushion     float64
	Redundancy      float64
	Volatility      float64
	Composite       float64
	Momentum        float64
}

// Score derives balance metrics for a script from its role set and any
// recorded play history. History may be empty; catalog-only estimates
// fill in.
func Score(script catalog.Script, history []PlayRecord) Metrics {
	m := Metrics{
		InformationGain: informationGain(script),
		ControlBalance:  controlBalance(script, history),
		TimeCushion:     timeCushion(script, history),
		Redundancy:      redundancy(script),
		Volatility:      volatility(script, history),
		Momentum:        momentum(history),
	}
	m.Composite = clamp(
		m.InformationGain*WeightInformationGain+
			m.ControlBalance*WeightControlBalance+
			m.TimeCushion*WeightTimeCushion+
			m.Redundancy*WeightRedundancy+
			m.Volatility*WeightVolatility,
		0, 100)
	return m
}

// informationGain measures how much of the script actively produces
// information: roles whose abilities disclose something, publicly or
// to a private recipient set.
func informationGain(script catalog.Script) float64 {
	if len(script.Roles) == 0 {
		return 0
	}
	informative := 0
	for _, role := range script.Roles {
		if role.Ability.When == catalog.TimingPassive || role.Ability.When == "" {
			continue
		}
		if role.Visibility.Public != catalog.VisibilityNone || len(role.Visibility.PrivateTo) > 0 {
			informative++
		}
	}
	return clamp(float64(informative)/float64(len(script.Roles))*100, 0, 100)
}

// controlBalance scores how evenly matched the sides are. With history
// it is the win-rate distance from 50/50; without, the good-to-evil
// seat ratio distance from the 5:2 baseline.
func controlBalance(script catalog.Script, history []PlayRecord) float64 {
	if len(history) > 0 {
		goodWins := 0
		for _, record := range history {
			if record.Winner == catalog.AlignmentGood {
				goodWins++
			}
		}
		rate := float64(goodWins) / float64(len(history)) * 100
		return clamp(100-math.Abs(rate-50)*2, 0, 100)
	}

	good, evil := 0, 0
	for _, role := range script.Roles {
		switch role.Alignment {
		case catalog.AlignmentGood:
			good++
		case catalog.AlignmentEvil:
			evil++
		}
	}
	if evil == 0 {
		return 0
	}
	ratio := float64(good) / float64(evil)
	return clamp(100-math.Abs(ratio-2.5)*40, 0, 100)
}

// timeCushion scores how much runway good has before evil parity.
// Longer average games mean more cushion; five days is full marks.
func timeCushion(script catalog.Script, history []PlayRecord) float64 {
	if len(history) > 0 {
		total := 0
		for _, record := range history {
			total += record.Days
		}
		avg := float64(total) / float64(len(history))
		return clamp(avg/5*100, 0, 100)
	}

	// Estimate one execution per day until evil reaches parity.
	mid := (script.Setup.PlayerCount.Min + script.Setup.PlayerCount.Max) / 2
	evilSeats := script.Setup.Distribution[catalog.TypeMinion] + script.Setup.Distribution[catalog.TypeDemon]
	if evilSeats == 0 {
		return 100
	}
	days := float64(mid-2*evilSeats) / 2
	return clamp(days/5*100, 0, 100)
}

// redundancy scores resilience to losing an information source: more
// than one informative role in the same precedence band means claims
// stay checkable after a death.
func redundancy(script catalog.Script) float64 {
	bands := make(map[int]int)
	for _, role := range script.Roles {
		if role.Visibility.Public == catalog.VisibilityNone && len(role.Visibility.PrivateTo) == 0 {
			continue
		}
		bands[role.Precedence]++
	}
	overlapping := 0
	for _, count := range bands {
		if count > 1 {
			overlapping += count
		}
	}
	if len(script.Roles) == 0 {
		return 0
	}
	return clamp(float64(overlapping)/float64(len(script.Roles))*200, 0, 100)
}

// volatility scores swinginess. With history it is the spread of game
// lengths; without, the share of seats that can cause deaths.
func volatility(script catalog.Script, history []PlayRecord) float64 {
	if len(history) > 1 {
		total := 0
		for _, record := range history {
			total += record.Days
		}
		mean := float64(total) / float64(len(history))
		variance := 0.0
		for _, record := range history {
			diff := float64(record.Days) - mean
			variance += diff * diff
		}
		variance /= float64(len(history))
		return clamp(math.Sqrt(variance)/3*100, 0, 100)
	}

	if len(script.Roles) == 0 {
		return 0
	}
	lethal := 0
	for _, role := range script.Roles {
		if role.Type == catalog.TypeDemon || role.Type == catalog.TypeMinion {
			lethal++
		}
	}
	return clamp(float64(lethal)/float64(len(script.Roles))*200, 0, 100)
}

// momentum reports the recent win trend over the last few games:
// +100 when good swept the window, -100 when evil did.
func momentum(history []PlayRecord) float64 {
	if len(history) == 0 {
		return 0
	}
	window := history
	if len(window) > momentumWindow {
		window = window[len(window)-momentumWindow:]
	}
	score := 0
	for _, record := range window {
		switch record.Winner {
		case catalog.AlignmentGood:
			score++
		case catalog.AlignmentEvil:
			score--
		}
	}
	return clamp(float64(score)/float64(len(window))*100, -100, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
