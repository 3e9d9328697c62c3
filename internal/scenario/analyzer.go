package scenario

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
)

var (
	// ErrInsufficientData is returned when the price window holds fewer than
	// two samples. The caller leaves the bot active and retries next cycle.
	ErrInsufficientData = errors.New("insufficient price data")

	// ErrNoProfitableScenario is returned when no entry/exit/leverage
	// combination lands inside the target profit band.
	ErrNoProfitableScenario = errors.New("no profitable scenario found")
)

// Params bounds the scenario search.
type Params struct {
	MinProfitPercent float64 // lower edge of the target band, inclusive
	MaxProfitPercent float64 // upper edge of the target band, inclusive
	MinLeverage      int
	MaxLeverage      int
	MinMovement      float64 // minimum natural movement as a fraction, e.g. 0.001
	TopSlice         float64 // fraction of the pool eligible for the random pick
}

// DefaultParams returns the production search bounds.
func DefaultParams() Params {
	return Params{
		MinProfitPercent: 1.0,
		MaxProfitPercent: 3.0,
		MinLeverage:      1,
		MaxLeverage:      100,
		MinMovement:      0.001,
		TopSlice:         0.10,
	}
}

// Scenario is one candidate trade outcome: an ordered entry/exit price pair
// from the window, a direction and an integer leverage.
type Scenario struct {
	Direction       string
	EntryPrice      float64
	ExitPrice       float64
	Leverage        int
	MovementPercent float64
	ProfitPercent   float64
	Score           float64
}

// Analyze searches the price window for a leveraged trade whose profit falls
// inside the target band and returns one of the top-scored candidates, picked
// uniformly at random. The randomization is intentional: without it every
// settlement of a similar window would reproduce the single best mathematical
// outcome. Pass a seeded rng for a deterministic pick.
//
// Samples must be ordered ascending by timestamp.
func Analyze(samples []models.PriceSample, p Params, rng *rand.Rand) (Scenario, error) {
	if len(samples) < 2 {
		return Scenario{}, ErrInsufficientData
	}

	var pool []Scenario

	for i := 0; i < len(samples); i++ {
		entry := samples[i].Price
		if entry <= 0 {
			continue
		}
		for j := i + 1; j < len(samples); j++ {
			exit := samples[j].Price
			if exit <= 0 {
				continue
			}

			// Long rides the price up from the earlier sample, short enters at
			// the earlier, higher price and exits at the later, lower one.
			if movement := (exit - entry) / entry; movement >= p.MinMovement {
				pool = appendCandidates(pool, p, models.DirectionLong, entry, exit, movement)
			}
			if movement := (entry - exit) / entry; movement >= p.MinMovement {
				pool = appendCandidates(pool, p, models.DirectionShort, entry, exit, movement)
			}
		}
	}

	if len(pool) == 0 {
		return Scenario{}, ErrNoProfitableScenario
	}

	sort.Slice(pool, func(a, b int) bool { return pool[a].Score > pool[b].Score })

	topN := int(math.Ceil(float64(len(pool)) * p.TopSlice))
	if topN < 1 {
		topN = 1
	}

	return pool[rng.Intn(topN)], nil
}

// appendCandidates expands one retained price pair across the leverage range
// and keeps the combinations whose profit lands inside the target band.
func appendCandidates(pool []Scenario, p Params, direction string, entry, exit, movement float64) []Scenario {
	movementPct := movement * 100

	for lev := p.MinLeverage; lev <= p.MaxLeverage; lev++ {
		profitPct := movementPct * float64(lev)
		if profitPct < p.MinProfitPercent || profitPct > p.MaxProfitPercent {
			continue
		}

		pool = append(pool, Scenario{
			Direction:       direction,
			EntryPrice:      entry,
			ExitPrice:       exit,
			Leverage:        lev,
			MovementPercent: movementPct,
			ProfitPercent:   profitPct,
			Score:           score(movementPct, lev),
		})
	}

	return pool
}

// score rewards large natural movement achieved with low leverage. The final
// penalty branch is unreachable while the minimum-movement filter stands, but
// it remains part of the defined scoring function.
func score(movementPct float64, leverage int) float64 {
	s := movementPct*10 - math.Log(float64(leverage))*5

	switch {
	case movementPct >= 1.0 && leverage <= 5:
		s += 20
	case movementPct >= 0.5 && leverage <= 10:
		s += 10
	case movementPct >= 0.2 && leverage <= 20:
		s += 5
	}

	if movementPct < 0.1 && leverage > 50 {
		s -= 30
	}

	return s
}
