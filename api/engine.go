/*
engine.go - HTTP handlers for the hierarchy engine

ENDPOINTS:
  GET    /api/hierarchy/suggest?q=&area=|area_name=&exclude=&exclude_assigned=
  POST   /api/hierarchy/assign                   Body: hierarchy.AssignRequest
  POST   /api/hierarchy/functionary              Body: FunctionaryRequest
  GET    /api/hierarchy/people/{id}/upline
  GET    /api/hierarchy/people/{id}/downline

Each request builds its own Directory for the area it touches. The server
keeps no engine state between requests; the store is the only truth.
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/warp/hierarchy-engine/hierarchy"
)

// Suggest ranks the people of an area against a free-text query.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	ref := areaRef(r)
	if ref.IsZero() {
		writeError(w, http.StatusBadRequest, "area or area_name query parameter is required", nil)
		return
	}
	q := r.URL.Query()

	dir := hierarchy.NewDirectory(h.Store, h.Logger)
	people, err := dir.Load(r.Context(), ref)
	if err != nil {
		h.writeEngineError(w, "Failed to load people", err)
		return
	}

	exclude := map[string]struct{}{}
	if raw := q.Get("exclude"); raw != "" {
		exclude = hierarchy.ExcludeIDs(strings.Split(raw, ",")...)
	}
	if ok, _ := strconv.ParseBool(q.Get("exclude_assigned")); ok {
		for id := range hierarchy.ExcludeAssigned(people) {
			exclude[id] = struct{}{}
		}
	}

	matches := dir.Suggest(q.Get("q"), exclude)
	out := make([]SuggestionDTO, 0, len(matches))
	for _, p := range matches {
		out = append(out, SuggestionDTO{ID: p.ID, Name: p.Name, Tier: p.Tier, Zone: p.Zone, Precinct: p.Precinct})
	}
	writeJSON(w, http.StatusOK, out)
}

// Assign validates and applies a tier assignment.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req hierarchy.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", nil)
		return
	}
	tier, err := hierarchy.ParseTier(string(req.Tier))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(), Code: string(hierarchy.CodeInvalidTier),
		})
		return
	}
	req.Tier = tier

	result, err := hierarchy.NewAssigner(h.Store, nil, h.Logger).Assign(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, "Failed to assign", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TagFunctionary attaches an observer/safety_officer/mediator tag.
func (h *Handler) TagFunctionary(w http.ResponseWriter, r *http.Request) {
	var req FunctionaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", nil)
		return
	}

	p, err := hierarchy.NewAssigner(h.Store, nil, h.Logger).TagFunctionary(r.Context(), req.PersonID, req.Tag)
	if err != nil {
		h.writeEngineError(w, "Failed to tag functionary", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Upline returns the ancestor chain of a person, nearest first.
func (h *Handler) Upline(w http.ResponseWriter, r *http.Request) {
	person, resolver, ok := h.resolverFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, UplineResponse{
		PersonID: person.ID,
		Tier:     person.Tier,
		Upline:   resolver.Upline(r.Context(), person),
	})
}

// Downline returns a person's children grouped by tier.
func (h *Handler) Downline(w http.ResponseWriter, r *http.Request) {
	person, resolver, ok := h.resolverFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, DownlineResponse{
		PersonID: person.ID,
		Tier:     person.Tier,
		Downline: resolver.Downline(r.Context(), person),
	})
}

// resolverFor loads the person and a directory of their area. A directory
// load failure is logged by the directory and only costs display joins.
func (h *Handler) resolverFor(w http.ResponseWriter, r *http.Request) (hierarchy.Person, *hierarchy.Resolver, bool) {
	person, err := h.Store.GetPerson(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, "Failed to get person", err)
		return hierarchy.Person{}, nil, false
	}
	dir := hierarchy.NewDirectory(h.Store, h.Logger)
	_, _ = dir.Load(r.Context(), hierarchy.AreaByID(person.AreaID))
	return person, hierarchy.NewResolver(h.Store, dir, h.Logger), true
}
