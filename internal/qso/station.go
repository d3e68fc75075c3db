// internal/qso/station.go
package qso

import (
	"math/rand"
	"strings"
	"sync"
)

// Station is the virtual operator on the other end of a QSO.
type Station struct {
	Callsign string
	Name     string
	Location string
	// Report is the RST the station gives the user.
	Report string
}

// Operator describes the user's own station.
type Operator struct {
	Callsign string
	Name     string
	Location string
	// Report is the RST the user gives the partner.
	Report string
}

const callsignSuffixLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// StationGenerator produces random stations from a pool. Safe for concurrent use.
type StationGenerator struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	pool StationPool
}

// NewStationGenerator returns a generator seeded with seed. The same seed
// always yields the same sequence of stations.
func NewStationGenerator(pool StationPool, seed int64) *StationGenerator {
	return &StationGenerator{
		rnd:  rand.New(rand.NewSource(seed)),
		pool: pool,
	}
}

// Generate returns a new station whose callsign differs from avoid.
func (g *StationGenerator) Generate(avoid string) Station {
	g.mu.Lock()
	defer g.mu.Unlock()

	avoid = strings.ToUpper(avoid)
	call := g.callsign()
	for call == avoid {
		call = g.callsign()
	}

	return Station{
		Callsign: call,
		Name:     strings.ToUpper(g.pick(g.pool.Names)),
		Location: strings.ToUpper(g.pick(g.pool.Locations)),
		Report:   strings.ToUpper(g.pick(g.pool.Reports)),
	}
}

func (g *StationGenerator) callsign() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(g.pick(g.pool.Prefixes)))
	b.WriteByte(byte('0' + g.rnd.Intn(10)))
	n := 1 + g.rnd.Intn(3)
	for i := 0; i < n; i++ {
		b.WriteByte(callsignSuffixLetters[g.rnd.Intn(len(callsignSuffixLetters))])
	}
	return b.String()
}

func (g *StationGenerator) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[g.rnd.Intn(len(items))]
}
