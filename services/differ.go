// services/differ.go
package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

// AggregateCycle collapses one query's provider observations into a single
// cycle result: cited/mentioned when any provider says so, best (lowest)
// rank across providers, competitor union.
func AggregateCycle(queryID uuid.UUID, observations []*models.ScanObservation) *models.QueryCycleResult {
	result := &models.QueryCycleResult{
		QueryID:      queryID,
		Observations: observations,
	}

	competitors := make(map[string]bool)
	for _, obs := range observations {
		result.Cited = result.Cited || obs.BrandCited
		result.Mentioned = result.Mentioned || obs.BrandMentioned
		if obs.Position != nil && (result.Position == nil || *obs.Position < *result.Position) {
			pos := *obs.Position
			result.Position = &pos
		}
		for _, c := range obs.CompetitorNames {
			competitors[c] = true
		}
	}

	result.CompetitorSet = make([]string, 0, len(competitors))
	for c := range competitors {
		result.CompetitorSet = append(result.CompetitorSet, c)
	}
	sort.Strings(result.CompetitorSet)

	return result
}

// DiffStates computes the transition between the previous citation state
// and the current cycle result. Pure: no I/O, no clock, same inputs always
// yield the same transition.
func DiffStates(previous *models.CitationState, current *models.QueryCycleResult) models.Transition {
	t := models.Transition{}

	if previous == nil {
		t.FirstCitation = current.Cited
		t.NewCompetitors = append([]string(nil), current.CompetitorSet...)
		return t
	}

	t.FirstCitation = !previous.WasCited && current.Cited
	t.CitationLost = previous.WasCited && !current.Cited

	// Delta only when a rank exists on both sides; positive means improved.
	if previous.Position != nil && current.Position != nil {
		delta := *previous.Position - *current.Position
		t.PositionDelta = &delta
	}

	known := make(map[string]bool, len(previous.CompetitorSet))
	for _, c := range previous.CompetitorSet {
		known[c] = true
	}
	for _, c := range current.CompetitorSet {
		if !known[c] {
			t.NewCompetitors = append(t.NewCompetitors, c)
		}
	}

	return t
}

// NextState builds the snapshot that replaces the previous citation state
// after a cycle.
func NextState(brandID uuid.UUID, current *models.QueryCycleResult, now time.Time) *models.CitationState {
	state := &models.CitationState{
		BrandID:       brandID,
		QueryID:       current.QueryID,
		WasCited:      current.Cited,
		WasMentioned:  current.Mentioned,
		Position:      current.Position,
		CompetitorSet: current.CompetitorSet,
		UpdatedAt:     now,
	}
	if n := len(current.Observations); n > 0 {
		state.LastObservationID = current.Observations[n-1].ObservationID
	}
	return state
}
