/*
stats.go - Aggregate counts over the hierarchy

ENDPOINTS:
  GET /api/stats/count?area=<id>|area_name=<name>
      People, assigned people and per-tier counts for one area, plus
      progress toward the area's target.

  GET /api/stats/roles-by-municipality?municipality=<name>
      Per-tier counts summed over every area of a municipality.

PROGRESS:
  Progress = assigned / target * 100, rounded half-up to two decimals.
  Computed with shopspring/decimal so the JSON value is exact ("33.33",
  never 33.333333333333336). A zero target reports zero progress.
*/
package api

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/hierarchy-engine/hierarchy"
	"golang.org/x/sync/errgroup"
)

// AreaStats returns assignment counts for one area.
func (h *Handler) AreaStats(w http.ResponseWriter, r *http.Request) {
	ref := areaRef(r)
	if ref.IsZero() {
		writeError(w, http.StatusBadRequest, "area or area_name query parameter is required", nil)
		return
	}
	ctx := r.Context()

	area, err := h.Store.GetArea(ctx, ref)
	if err != nil {
		h.writeEngineError(w, "Failed to get area", err)
		return
	}

	var (
		people int
		byTier map[hierarchy.Tier]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		people, err = h.Store.CountPeople(gctx, area.ID)
		return err
	})
	g.Go(func() error {
		var err error
		byTier, err = h.Store.CountByTier(gctx, area.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeEngineError(w, "Failed to count", err)
		return
	}

	assigned := 0
	for _, n := range byTier {
		assigned += n
	}

	writeJSON(w, http.StatusOK, AreaStatsDTO{
		AreaID:   area.ID,
		AreaName: area.Name,
		People:   people,
		Assigned: assigned,
		ByTier:   byTier,
		Target:   area.Target,
		Progress: progress(assigned, area.Target),
	})
}

// RolesByMunicipality sums tier counts across a municipality.
func (h *Handler) RolesByMunicipality(w http.ResponseWriter, r *http.Request) {
	municipality := r.URL.Query().Get("municipality")
	if municipality == "" {
		writeError(w, http.StatusBadRequest, "municipality query parameter is required", nil)
		return
	}
	ctx := r.Context()

	areas, err := h.Store.ListAreasByMunicipality(ctx, municipality)
	if err != nil {
		h.writeEngineError(w, "Failed to list areas", err)
		return
	}
	ids := make([]string, len(areas))
	for i, a := range areas {
		ids[i] = a.ID
	}

	byTier, err := h.Store.CountByTier(ctx, ids...)
	if err != nil {
		h.writeEngineError(w, "Failed to count", err)
		return
	}

	writeJSON(w, http.StatusOK, MunicipalityStatsDTO{
		Municipality: municipality,
		Areas:        len(areas),
		ByTier:       byTier,
	})
}

func progress(assigned, target int) decimal.Decimal {
	if target <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(assigned)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(target))).
		Round(2)
}
