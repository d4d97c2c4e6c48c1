/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  People, areas and tier records go over the wire as the hierarchy types
  themselves: their JSON shape IS the data-source contract that remote
  implementations must speak. This file holds everything else: request
  bodies, engine responses and aggregate views.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - hierarchy/types.go: Wire types for people, areas, records
*/
package api

import (
	"github.com/shopspring/decimal"
	"github.com/warp/hierarchy-engine/hierarchy"
)

// =============================================================================
// DATA SOURCE REQUESTS
// =============================================================================

// AreaIndexRequest appends a person to an area index array.
type AreaIndexRequest struct {
	PersonID string `json:"person_id"`
}

// UpdateRecordRequest edits the mutable part of a tier record.
type UpdateRecordRequest struct {
	Zone string `json:"zone"`
}

// =============================================================================
// ENGINE REQUESTS / RESPONSES
// =============================================================================

// FunctionaryRequest tags a person with a functionary role.
type FunctionaryRequest struct {
	PersonID string `json:"person_id"`
	Tag      string `json:"tag"`
}

// SuggestionDTO is one ranked name match.
type SuggestionDTO struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Tier     hierarchy.Tier `json:"tier,omitempty"`
	Zone     string         `json:"zone,omitempty"`
	Precinct string         `json:"precinct,omitempty"`
}

// UplineResponse is the ancestor chain for one person.
type UplineResponse struct {
	PersonID string                  `json:"person_id"`
	Tier     hierarchy.Tier          `json:"tier"`
	Upline   []hierarchy.UplineEntry `json:"upline"`
}

// DownlineResponse is the grouped children of one person.
type DownlineResponse struct {
	PersonID string             `json:"person_id"`
	Tier     hierarchy.Tier     `json:"tier"`
	Downline hierarchy.Downline `json:"downline"`
}

// =============================================================================
// STATS
// =============================================================================

// AreaStatsDTO counts assignments in one area against its target.
type AreaStatsDTO struct {
	AreaID   string                 `json:"area_id"`
	AreaName string                 `json:"area_name"`
	People   int                    `json:"people"`
	Assigned int                    `json:"assigned"`
	ByTier   map[hierarchy.Tier]int `json:"by_tier"`
	Target   int                    `json:"target"`
	// Progress is Assigned/Target as a percentage with two decimals.
	Progress decimal.Decimal `json:"progress"`
}

// MunicipalityStatsDTO sums tier counts across a municipality's areas.
type MunicipalityStatsDTO struct {
	Municipality string                 `json:"municipality"`
	Areas        int                    `json:"areas"`
	ByTier       map[hierarchy.Tier]int `json:"by_tier"`
}

// =============================================================================
// SCENARIOS / ERRORS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
