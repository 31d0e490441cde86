package engine

import (
	"strings"

	"github.com/ChuLiYu/mlfq-sim/pkg/types"
)

// Scheme binds a configuration to each of the four tiers, tier 1 first.
type Scheme struct {
	ID     types.SchemeID
	Levels [types.TierCount]types.LevelConfig
}

// Description renders the tier configuration, e.g. "RR(1), RR(3), RR(4), SJF".
func (s Scheme) Description() string {
	parts := make([]string, len(s.Levels))
	for i, level := range s.Levels {
		parts[i] = level.String()
	}
	return strings.Join(parts, ", ")
}

func rr(quantum int) types.LevelConfig {
	return types.LevelConfig{Mode: types.ModeRoundRobin, Quantum: quantum}
}

var predefined = []Scheme{
	{
		ID:     types.SchemeA,
		Levels: [types.TierCount]types.LevelConfig{rr(1), rr(3), rr(4), {Mode: types.ModeShortestJobFirst}},
	},
	{
		ID:     types.SchemeB,
		Levels: [types.TierCount]types.LevelConfig{rr(2), rr(3), rr(4), {Mode: types.ModeShortestRemainingTimeFirst}},
	},
	{
		ID:     types.SchemeC,
		Levels: [types.TierCount]types.LevelConfig{rr(3), rr(5), rr(6), rr(20)},
	},
}

// Schemes returns the predefined schemes in A, B, C order.
func Schemes() []Scheme {
	out := make([]Scheme, len(predefined))
	copy(out, predefined)
	return out
}

// SchemeIDs returns the identifiers of the predefined schemes.
func SchemeIDs() []types.SchemeID {
	ids := make([]types.SchemeID, len(predefined))
	for i, s := range predefined {
		ids[i] = s.ID
	}
	return ids
}

// LookupScheme resolves an identifier, case-insensitively.
// An unrecognized identifier yields a *ConfigError.
func LookupScheme(id types.SchemeID) (Scheme, error) {
	want := types.SchemeID(strings.ToUpper(strings.TrimSpace(string(id))))
	for _, s := range predefined {
		if s.ID == want {
			return s, nil
		}
	}
	return Scheme{}, &ConfigError{Scheme: string(id)}
}
