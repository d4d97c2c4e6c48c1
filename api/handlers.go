/*
handlers.go - HTTP handlers for the people/areas/records data source

PURPOSE:
  Serves the REST contract the hierarchy engine consumes. Any service that
  speaks these endpoints can back the engine through client.Client; this
  one is backed by SQLite.

ENDPOINTS:
  People:
    GET    /api/people?area=<id>         List people of an area by id
    GET    /api/people?area_name=<name>  ... or by display name
    POST   /api/people                   Register a person
    GET    /api/people/{id}              Get one person
    PUT    /api/people/{id}              Partial update (hierarchy.PersonPatch)

  Areas:
    GET    /api/areas                    List areas
    POST   /api/areas                    Create/replace an area
    GET    /api/areas/{id}               Get by id
    GET    /api/areas/by-name/{name}     Get by display name
    PUT    /api/areas/{id}               Partial update (hierarchy.AreaPatch)
    PUT    /api/areas/{id}/{index}       Append to sub_chair_ids or a tag list

  Records (one route group per collection: sub-chairs, section-chiefs,
  cell-leaders, members):
    GET    /api/{collection}?area=&area_name=&parent_id=&person_id=
    POST   /api/{collection}
    PUT    /api/{collection}/{id}        Update zone

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Assignment rule violation (invalid_tier is a 400)
  - 502: Upstream fetch failure
  - 500: Internal errors, partially applied writes

SEE ALSO:
  - engine.go: Suggest/assign/upline/downline endpoints
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/store/sqlite"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Logger *zap.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Logger: logger}
}

// areaRef reads ?area=<id> or ?area_name=<name>.
func areaRef(r *http.Request) hierarchy.AreaRef {
	q := r.URL.Query()
	return hierarchy.AreaRef{ID: q.Get("area"), Name: q.Get("area_name")}
}

// =============================================================================
// PEOPLE HANDLERS
// =============================================================================

// ListPeople returns the people of one area.
func (h *Handler) ListPeople(w http.ResponseWriter, r *http.Request) {
	ref := areaRef(r)
	if ref.IsZero() {
		writeError(w, http.StatusBadRequest, "area or area_name query parameter is required", nil)
		return
	}

	people, err := h.Store.ListPeople(r.Context(), ref)
	if err != nil {
		h.writeEngineError(w, "Failed to list people", err)
		return
	}
	writeJSON(w, http.StatusOK, people)
}

// CreatePerson registers a person. Tier is always left unset; tiers are
// only ever set through assignment.
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var p hierarchy.Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" || p.AreaID == "" {
		writeError(w, http.StatusBadRequest, "id, name and area_id are required", nil)
		return
	}
	if _, err := h.Store.GetArea(r.Context(), hierarchy.AreaByID(p.AreaID)); err != nil {
		h.writeEngineError(w, "Unknown area", err)
		return
	}
	p.Tier = hierarchy.TierNone

	if err := h.Store.SavePerson(r.Context(), p); err != nil {
		h.writeEngineError(w, "Failed to create person", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// GetPerson returns a single person.
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPerson(r.Context(), pathParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, "Failed to get person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdatePerson applies a partial update.
func (h *Handler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	var patch hierarchy.PersonPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if patch.Tier != nil {
		if _, err := hierarchy.ParseTier(string(*patch.Tier)); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid tier", err)
			return
		}
	}

	p, err := h.Store.UpdatePerson(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		h.writeEngineError(w, "Failed to update person", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// =============================================================================
// AREA HANDLERS
// =============================================================================

// ListAreas returns all areas.
func (h *Handler) ListAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.Store.ListAreas(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list areas", err)
		return
	}
	if areas == nil {
		areas = []hierarchy.Area{}
	}
	writeJSON(w, http.StatusOK, areas)
}

// CreateArea creates or replaces an area's singleton fields.
func (h *Handler) CreateArea(w http.ResponseWriter, r *http.Request) {
	var a hierarchy.Area
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if a.ID == "" || strings.TrimSpace(a.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	if err := h.Store.SaveArea(r.Context(), a); err != nil {
		h.writeEngineError(w, "Failed to create area", err)
		return
	}
	created, err := h.Store.GetArea(r.Context(), hierarchy.AreaByID(a.ID))
	if err != nil {
		h.writeEngineError(w, "Failed to read area", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetArea returns an area by id.
func (h *Handler) GetArea(w http.ResponseWriter, r *http.Request) {
	h.getArea(w, r, hierarchy.AreaByID(pathParam(r, "id")))
}

// GetAreaByName returns an area by display name.
func (h *Handler) GetAreaByName(w http.ResponseWriter, r *http.Request) {
	h.getArea(w, r, hierarchy.AreaByName(pathParam(r, "name")))
}

func (h *Handler) getArea(w http.ResponseWriter, r *http.Request, ref hierarchy.AreaRef) {
	a, err := h.Store.GetArea(r.Context(), ref)
	if err != nil {
		h.writeEngineError(w, "Failed to get area", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateArea applies a partial update to the singleton fields.
func (h *Handler) UpdateArea(w http.ResponseWriter, r *http.Request) {
	var patch hierarchy.AreaPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Store.UpdateArea(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		h.writeEngineError(w, "Failed to update area", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// AppendAreaIndex appends a person to sub_chair_ids or a functionary tag list.
func (h *Handler) AppendAreaIndex(w http.ResponseWriter, r *http.Request) {
	index := pathParam(r, "index")
	if index != hierarchy.AreaIndexSubChairs {
		if _, err := hierarchy.ParseFunctionary(index); err != nil {
			writeError(w, http.StatusBadRequest, "Unknown area index", err)
			return
		}
	}

	var req AreaIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PersonID == "" {
		writeError(w, http.StatusBadRequest, "person_id is required", err)
		return
	}

	a, err := h.Store.AppendAreaIndex(r.Context(), pathParam(r, "id"), index, req.PersonID)
	if err != nil {
		h.writeEngineError(w, "Failed to update area index", err)
		return
	}
	h.Logger.Debug("area index appended",
		zap.String("area_id", a.ID),
		zap.String("index", index),
		zap.Int("size", len(a.Index(index))))
	writeJSON(w, http.StatusOK, a)
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// ListRecords returns a tier's records, filtered by query parameters.
func (h *Handler) ListRecords(tier hierarchy.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := hierarchy.RecordFilter{
			Area:     areaRef(r),
			ParentID: q.Get("parent_id"),
			PersonID: q.Get("person_id"),
		}
		recs, err := h.Store.ListRecords(r.Context(), tier, filter)
		if err != nil {
			h.writeEngineError(w, "Failed to list records", err)
			return
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// CreateRecord stores a tier record. The tier comes from the collection.
func (h *Handler) CreateRecord(tier hierarchy.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec hierarchy.TierRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if rec.ID == "" || rec.PersonID == "" || rec.AreaID == "" {
			writeError(w, http.StatusBadRequest, "id, person_id and area_id are required", nil)
			return
		}
		rec.Tier = tier

		created, err := h.Store.CreateRecord(r.Context(), rec)
		if err != nil {
			h.writeEngineError(w, "Failed to create record", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// UpdateRecord changes a record's zone.
func (h *Handler) UpdateRecord(tier hierarchy.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		rec, err := h.Store.UpdateRecordZone(r.Context(), tier, pathParam(r, "id"), req.Zone)
		if err != nil {
			h.writeEngineError(w, "Failed to update record", err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// pathParam returns a decoded URL parameter. chi matches on RawPath when the
// request carries one (an escaped "/" in an id, say), and then hands back
// the still-escaped segment.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if dec, err := url.PathUnescape(v); err == nil {
		return dec
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps hierarchy errors onto HTTP statuses. The message
// always says what went wrong in words an operator can act on.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	var ae *hierarchy.AssignmentError
	switch {
	case errors.As(err, &ae):
		status := http.StatusConflict
		if ae.Code == hierarchy.CodeInvalidTier {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{Error: ae.Error(), Code: string(ae.Code)})
	case errors.Is(err, hierarchy.ErrPartialAssignment):
		h.Logger.Error(message, zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "The assignment was only partially saved. Check this person's tier before retrying.",
			Code:    "partial_assignment",
			Details: err.Error(),
		})
	case hierarchy.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case hierarchy.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, hierarchy.ErrFetch):
		h.Logger.Warn(message, zap.Error(err))
		writeError(w, http.StatusBadGateway, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
