// Package geo resolves ISP and backbone router hostnames to an approximate
// location. It is used to decorate traceroute hops and never runs on the
// monitoring hot path.
//
// Parsing is a sequence of passes over the hostname's segments, most specific
// pattern first:
//
//	1. CLLI code        snjsca04   → San Jose, CA
//	2. city + state     sunnyvale.ca → Sunnyvale, CA
//	3. full city name   dallas1    → Dallas, TX
//	4. IATA code        iad08      → Washington, DC
//
// The first pass that matches wins, and within a pass the leftmost segment
// wins. Results are fixed reference points from the lookup tables.
package geo

import (
	"cmp"
	"slices"
	"strings"

	"github.com/vpbank/homelink_monitor/models"
)

const (
	clliMinLen       = 6
	standaloneMinLen = 4
	iataLen          = 3
	maxJoinedParts   = 2
)

// Parse maps a router hostname to a location. The boolean is false when no
// pass matched, including for empty input and the traceroute wildcard "*".
func Parse(hostname string) (models.ParsedLocation, bool) {
	h := strings.TrimSpace(hostname)
	if h == "" || h == "*" {
		return models.ParsedLocation{}, false
	}
	segs := strings.FieldsFunc(strings.ToLower(h), isSeparator)

	for _, pass := range []func([]string) (models.ParsedLocation, bool){
		matchCLLI,
		matchCityState,
		matchCityName,
		matchIATA,
	} {
		if loc, ok := pass(segs); ok {
			return loc, true
		}
	}
	return models.ParsedLocation{}, false
}

// matchCLLI looks for <4-letter city><2-letter state><digits?>.
func matchCLLI(segs []string) (models.ParsedLocation, bool) {
	for _, seg := range segs {
		if len(seg) < clliMinLen {
			continue
		}
		code, state, rest := seg[:4], seg[4:6], seg[6:]
		if !isState(state) || !allDigits(rest) {
			continue
		}
		if loc, ok := lookup(clliCities, code); ok {
			loc.Region = strings.ToUpper(state)
			return loc, true
		}
	}
	return models.ParsedLocation{}, false
}

// matchCityState finds a segment that is a state code and resolves the
// segment before it, then that segment joined with up to two predecessors.
func matchCityState(segs []string) (models.ParsedLocation, bool) {
	for i := 0; i+1 < len(segs); i++ {
		state := segs[i+1]
		if !isState(state) {
			continue
		}
		name := ""
		for back := 0; back <= maxJoinedParts && i-back >= 0; back++ {
			name = stripDigits(segs[i-back]) + name
			if loc, ok := lookupStateCity(state, name); ok {
				return loc, true
			}
		}
	}
	return models.ParsedLocation{}, false
}

func matchCityName(segs []string) (models.ParsedLocation, bool) {
	for _, seg := range segs {
		name := stripDigits(seg)
		if len(name) < standaloneMinLen {
			continue
		}
		if loc, ok := lookup(cityNames, name); ok {
			return loc, true
		}
	}
	return models.ParsedLocation{}, false
}

func matchIATA(segs []string) (models.ParsedLocation, bool) {
	for _, seg := range segs {
		if len(seg) < iataLen || !allDigits(seg[iataLen:]) {
			continue
		}
		if loc, ok := lookup(iataCodes, seg[:iataLen]); ok {
			return loc, true
		}
	}
	return models.ParsedLocation{}, false
}

// ─────────────────────────────────────────────────────────────────────────────
// Table lookups
// ─────────────────────────────────────────────────────────────────────────────

func lookup(table []codeEntry, code string) (models.ParsedLocation, bool) {
	i, ok := slices.BinarySearchFunc(table, code, func(e codeEntry, k string) int {
		return strings.Compare(e.code, k)
	})
	if !ok {
		return models.ParsedLocation{}, false
	}
	return table[i].loc, true
}

func lookupStateCity(state, name string) (models.ParsedLocation, bool) {
	i, ok := slices.BinarySearchFunc(stateCities, [2]string{state, name}, func(e stateCity, k [2]string) int {
		return cmp.Or(strings.Compare(e.state, k[0]), strings.Compare(e.name, k[1]))
	})
	if !ok {
		return models.ParsedLocation{}, false
	}
	return stateCities[i].loc, true
}

func isState(s string) bool {
	if len(s) != 2 {
		return false
	}
	_, ok := slices.BinarySearch(usStates, s)
	return ok
}

// ─────────────────────────────────────────────────────────────────────────────
// Segment helpers
// ─────────────────────────────────────────────────────────────────────────────

func isSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_'
}

func stripDigits(s string) string {
	return strings.TrimRight(s, "0123456789")
}

// allDigits reports whether s is empty or consists only of ASCII digits.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
