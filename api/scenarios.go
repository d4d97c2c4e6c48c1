/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Assigned scenarios go through the real
	Assigner so every record carries the same denormalized ancestors a
	live assignment would.

AVAILABLE SCENARIOS:

	empty:           Two areas, nobody registered
	riverside:       Riverside roster, nobody assigned yet
	riverside-chain: Riverside with a full chair -> cell leader chain,
	                 members and functionary tags

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create areas
 3. Register people (tier unset)
 4. Run assignments in tier order

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "riverside-chain"}

USAGE VIA CLI:

	hierarchy-engine seed --scenario riverside-chain

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Two areas in San Isidro with nobody registered",
	},
	{
		ID:          "riverside",
		Name:        "Riverside Roster",
		Description: "Riverside and Hillcrest rosters, nobody assigned",
	},
	{
		ID:          "riverside-chain",
		Name:        "Riverside Chain",
		Description: "Chair, sub-chairs, section chief, cell leader and members with functionaries",
	},
}

// Scenarios lists the loadable scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.scenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !knownScenario(req.ScenarioID) {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.setScenario("")
	if err := LoadScenarioData(r.Context(), h.Store, req.ScenarioID, h.Logger); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.setScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) scenario() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentScenario
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

func knownScenario(id string) bool {
	for _, s := range scenarios {
		if s.ID == id {
			return true
		}
	}
	return false
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// LoadScenarioData resets the store and loads a scenario into it.
func LoadScenarioData(ctx context.Context, store *sqlite.Store, id string, logger *zap.Logger) error {
	if !knownScenario(id) {
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	if err := seedAreas(ctx, store); err != nil {
		return err
	}
	if id == "empty" {
		return nil
	}
	if err := seedPeople(ctx, store); err != nil {
		return err
	}
	if id == "riverside" {
		return nil
	}
	return seedChain(ctx, store, logger)
}

func seedAreas(ctx context.Context, store *sqlite.Store) error {
	for _, a := range []hierarchy.Area{
		{
			ID: "area-riverside", Name: "Riverside", Municipality: "San Isidro",
			ZoneList: []string{"Purok 1", "Purok 2", "Purok 3"}, Target: 12,
		},
		{
			ID: "area-hillcrest", Name: "Hillcrest", Municipality: "San Isidro",
			ZoneList: []string{"Sitio Alto", "Sitio Baba"}, Target: 8,
		},
	} {
		if err := store.SaveArea(ctx, a); err != nil {
			return fmt.Errorf("save area %s: %w", a.ID, err)
		}
	}
	return nil
}

func seedPeople(ctx context.Context, store *sqlite.Store) error {
	riverside := []struct{ id, name, zone, precinct string }{
		{"p-leo", "Leo Santos", "Purok 1", "0012A"},
		{"p-ana", "Ana Cruz", "Purok 1", "0012A"},
		{"p-ben", "Ben Reyes", "Purok 2", "0012B"},
		{"p-anabel", "Anabel Cruz", "Purok 2", "0012B"},
		{"p-gina", "Gina Lopez", "Purok 2", "0013A"},
		{"p-lito", "Lito Garcia", "Purok 3", "0013A"},
		{"p-mara", "Mara Dizon", "Purok 3", "0013B"},
		{"p-nilo", "Nilo Bautista", "Purok 3", "0013B"},
		{"p-olga", "Olga Mendoza", "Purok 1", "0014A"},
	}
	for i, p := range riverside {
		person := hierarchy.Person{
			ID: p.id, Name: p.name, AreaID: "area-riverside",
			Zone: p.zone, Precinct: p.precinct,
			PhoneNumber: fmt.Sprintf("0917-000-%04d", i+1),
		}
		if err := store.SavePerson(ctx, person); err != nil {
			return fmt.Errorf("save person %s: %w", p.id, err)
		}
	}

	hillcrest := []hierarchy.Person{
		{ID: "p-hilda", Name: "Hilda Ramos", AreaID: "area-hillcrest", Zone: "Sitio Alto"},
		{ID: "p-ramon", Name: "Ramon Aquino", AreaID: "area-hillcrest", Zone: "Sitio Baba"},
	}
	for _, p := range hillcrest {
		if err := store.SavePerson(ctx, p); err != nil {
			return fmt.Errorf("save person %s: %w", p.ID, err)
		}
	}
	return nil
}

func seedChain(ctx context.Context, store *sqlite.Store, logger *zap.Logger) error {
	assigner := hierarchy.NewAssigner(store, nil, logger)

	steps := []hierarchy.AssignRequest{
		{PersonID: "p-leo", Tier: hierarchy.TierChair},
		{PersonID: "p-ana", Tier: hierarchy.TierSubChair},
		{PersonID: "p-ben", Tier: hierarchy.TierSubChair},
		{PersonID: "p-gina", Tier: hierarchy.TierSectionChief, ParentID: "p-ana"},
		{PersonID: "p-lito", Tier: hierarchy.TierCellLeader, ParentID: "p-gina"},
		{PersonID: "p-mara", Tier: hierarchy.TierMember, ParentID: "p-lito"},
		{PersonID: "p-nilo", Tier: hierarchy.TierMember, ParentID: "p-lito"},
	}
	for _, req := range steps {
		if _, err := assigner.Assign(ctx, req); err != nil {
			return fmt.Errorf("assign %s as %s: %w", req.PersonID, req.Tier, err)
		}
	}

	for id, tag := range map[string]string{
		"p-anabel": string(hierarchy.FunctionaryObserver),
		"p-olga":   string(hierarchy.FunctionaryMediator),
	} {
		if _, err := assigner.TagFunctionary(ctx, id, tag); err != nil {
			return fmt.Errorf("tag %s: %w", id, err)
		}
	}
	return nil
}
