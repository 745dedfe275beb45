// services/differ_test.go
package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/brandbeacon/beacon-workflows/internal/models"
)

func cycle(cited, mentioned bool, position *int, competitors ...string) *models.QueryCycleResult {
	return &models.QueryCycleResult{
		QueryID:       uuid.New(),
		Cited:         cited,
		Mentioned:     mentioned,
		Position:      position,
		CompetitorSet: competitors,
	}
}

func state(cited bool, position *int, competitors ...string) *models.CitationState {
	return &models.CitationState{
		BrandID:       uuid.New(),
		QueryID:       uuid.New(),
		WasCited:      cited,
		Position:      position,
		CompetitorSet: competitors,
	}
}

func TestDiffStatesNilPrevious(t *testing.T) {
	cur := cycle(true, true, intPtr(1), "Globex")

	got := DiffStates(nil, cur)
	if !got.FirstCitation {
		t.Error("first cycle with a citation must report first_citation")
	}
	if got.CitationLost {
		t.Error("citation cannot be lost without a previous state")
	}
	if got.PositionDelta != nil {
		t.Errorf("position_delta = %d, want nil without a baseline", *got.PositionDelta)
	}
	if !reflect.DeepEqual(got.NewCompetitors, []string{"Globex"}) {
		t.Errorf("new_competitors = %v, want all observed competitors", got.NewCompetitors)
	}
}

func TestDiffStatesTransitions(t *testing.T) {
	tests := []struct {
		name     string
		previous *models.CitationState
		current  *models.QueryCycleResult
		want     models.Transition
	}{
		{
			name:     "gaining a citation",
			previous: state(false, nil),
			current:  cycle(true, true, intPtr(2)),
			want:     models.Transition{FirstCitation: true},
		},
		{
			name:     "losing a citation",
			previous: state(true, intPtr(1)),
			current:  cycle(false, true, intPtr(3)),
			want:     models.Transition{CitationLost: true, PositionDelta: intPtr(-2)},
		},
		{
			name:     "position improves",
			previous: state(true, intPtr(3)),
			current:  cycle(true, true, intPtr(1)),
			want:     models.Transition{PositionDelta: intPtr(2)},
		},
		{
			name:     "no rank on either side leaves delta nil",
			previous: state(true, nil),
			current:  cycle(true, false, nil),
			want:     models.Transition{},
		},
		{
			name:     "new competitor only",
			previous: state(true, intPtr(1), "Globex"),
			current:  cycle(true, true, intPtr(1), "Globex", "Initech"),
			want:     models.Transition{PositionDelta: intPtr(0), NewCompetitors: []string{"Initech"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiffStates(tt.previous, tt.current)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DiffStates() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDiffStatesUnchangedCitationIsQuiet(t *testing.T) {
	// A cycle where cited status matches the baseline produces no
	// first_citation or citation_lost for any query.
	for _, cited := range []bool{true, false} {
		got := DiffStates(state(cited, intPtr(1), "Globex"), cycle(cited, true, intPtr(1), "Globex"))
		if got.FirstCitation || got.CitationLost {
			t.Errorf("cited=%v unchanged produced transition %+v", cited, got)
		}
	}
}

func TestDiffStatesDeterministic(t *testing.T) {
	previous := state(true, intPtr(2), "Globex")
	current := cycle(false, true, intPtr(4), "Globex", "Initech")

	first := DiffStates(previous, current)
	second := DiffStates(previous, current)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same inputs produced different transitions: %+v vs %+v", first, second)
	}
}

func TestAggregateCycle(t *testing.T) {
	queryID := uuid.New()
	obs := []*models.ScanObservation{
		{ObservationID: uuid.New(), QueryID: queryID, BrandMentioned: true, Position: intPtr(3), CompetitorNames: []string{"Globex"}},
		{ObservationID: uuid.New(), QueryID: queryID, BrandCited: true, BrandMentioned: true, Position: intPtr(1), CompetitorNames: []string{"Initech", "Globex"}},
		{ObservationID: uuid.New(), QueryID: queryID},
	}

	got := AggregateCycle(queryID, obs)
	if !got.Cited || !got.Mentioned {
		t.Error("any provider's signal must carry into the aggregate")
	}
	if got.Position == nil || *got.Position != 1 {
		t.Errorf("position = %v, want best rank 1", got.Position)
	}
	if !reflect.DeepEqual(got.CompetitorSet, []string{"Globex", "Initech"}) {
		t.Errorf("competitor set = %v, want sorted union", got.CompetitorSet)
	}
}

func TestAggregateCycleEmpty(t *testing.T) {
	got := AggregateCycle(uuid.New(), nil)
	if got.Cited || got.Mentioned || got.Position != nil {
		t.Errorf("empty aggregate must carry no signal: %+v", got)
	}
}

func TestNextState(t *testing.T) {
	brandID := uuid.New()
	queryID := uuid.New()
	lastObs := uuid.New()
	now := time.Now().UTC()

	cur := &models.QueryCycleResult{
		QueryID:       queryID,
		Observations:  []*models.ScanObservation{{ObservationID: uuid.New()}, {ObservationID: lastObs}},
		Cited:         true,
		Mentioned:     true,
		Position:      intPtr(2),
		CompetitorSet: []string{"Globex"},
	}

	got := NextState(brandID, cur, now)
	if got.BrandID != brandID || got.QueryID != queryID {
		t.Error("state must carry the brand and query identity")
	}
	if !got.WasCited || !got.WasMentioned {
		t.Error("state must reflect the cycle's signal")
	}
	if got.LastObservationID != lastObs {
		t.Errorf("last_observation_id = %s, want %s", got.LastObservationID, lastObs)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("updated_at = %s, want %s", got.UpdatedAt, now)
	}
}
