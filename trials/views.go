package trials

import (
	"strings"

	"github.com/ruteri/confidential-trials/interfaces"
)

// Stats summarizes the loaded registry.
type Stats struct {
	TotalTrials      int     `json:"total_trials"`
	VerifiedPatients int     `json:"verified_patients"`
	AvgCondition     float64 `json:"avg_condition"`
	ActiveTrials     int     `json:"active_trials"`
}

func computeStats(trials []interfaces.Trial) Stats {
	var stats Stats
	var conditionSum uint64
	for i := range trials {
		stats.TotalTrials++
		if trials[i].IsVerified {
			stats.VerifiedPatients++
		}
		if trials[i].TreatmentPhase > 0 {
			stats.ActiveTrials++
		}
		conditionSum += trials[i].ConditionScore
	}
	if stats.TotalTrials > 0 {
		stats.AvgCondition = float64(conditionSum) / float64(stats.TotalTrials)
	}
	return stats
}

// filterTrials matches term case-insensitively against name and description.
func filterTrials(trials []interfaces.Trial, term string) []interfaces.Trial {
	term = strings.ToLower(term)
	out := make([]interfaces.Trial, 0, len(trials))
	for _, t := range trials {
		if strings.Contains(strings.ToLower(t.Name), term) || strings.Contains(strings.ToLower(t.Description), term) {
			out = append(out, t)
		}
	}
	return out
}

func findTrial(trials []interfaces.Trial, id interfaces.TrialID) (interfaces.Trial, bool) {
	for _, t := range trials {
		if t.ID == id {
			return t, true
		}
	}
	return interfaces.Trial{}, false
}
