/*
handlers_test.go - HTTP tests for the API

Tests for:
- Data source contract (people, areas, records)
- Engine endpoints (suggest, assign, upline, downline, functionary)
- Error mapping to HTTP statuses
- Stats and scenarios
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/store/sqlite"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	store  *sqlite.Store
	router http.Handler
}

func newTestServer(t *testing.T, scenario string) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if scenario != "" {
		require.NoError(t, LoadScenarioData(context.Background(), store, scenario, zap.NewNop()))
	}
	return &testServer{store: store, router: NewRouter(NewHandler(store, zap.NewNop()))}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// =============================================================================
// DATA SOURCE CONTRACT
// =============================================================================

func TestPeople_ListByAreaIDAndName(t *testing.T) {
	srv := newTestServer(t, "riverside")

	byID := srv.do(t, http.MethodGet, "/api/people?area=area-riverside", nil)
	byName := srv.do(t, http.MethodGet, "/api/people?area_name=Riverside", nil)

	require.Equal(t, http.StatusOK, byID.Code)
	require.Equal(t, http.StatusOK, byName.Code)
	a := decode[[]hierarchy.Person](t, byID)
	b := decode[[]hierarchy.Person](t, byName)
	assert.Len(t, a, 9)
	assert.Equal(t, a, b)
}

func TestPeople_ListRequiresArea(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodGet, "/api/people", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPeople_CreateIgnoresTier(t *testing.T) {
	srv := newTestServer(t, "empty")

	rec := srv.do(t, http.MethodPost, "/api/people", hierarchy.Person{
		ID: "p-new", Name: " Rosa Lim ", AreaID: "area-riverside", Tier: hierarchy.TierChair,
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[hierarchy.Person](t, rec)
	assert.Equal(t, "Rosa Lim", p.Name)
	assert.Equal(t, hierarchy.TierNone, p.Tier, "tiers are only set by assignment")
}

func TestPeople_CreateUnknownArea(t *testing.T) {
	srv := newTestServer(t, "empty")

	rec := srv.do(t, http.MethodPost, "/api/people", hierarchy.Person{ID: "p-x", Name: "X", AreaID: "nowhere"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPeople_GetAndPatch(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodGet, "/api/people/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	zone := "Purok 3"
	rec = srv.do(t, http.MethodPut, "/api/people/p-ana", hierarchy.PersonPatch{Zone: &zone})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Purok 3", decode[hierarchy.Person](t, rec).Zone)

	bad := hierarchy.Tier("captain")
	rec = srv.do(t, http.MethodPut, "/api/people/p-ana", hierarchy.PersonPatch{Tier: &bad})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAreas_GetByIDAndName(t *testing.T) {
	srv := newTestServer(t, "empty")

	byID := srv.do(t, http.MethodGet, "/api/areas/area-hillcrest", nil)
	byName := srv.do(t, http.MethodGet, "/api/areas/by-name/hillcrest", nil)
	missing := srv.do(t, http.MethodGet, "/api/areas/by-name/Atlantis", nil)

	require.Equal(t, http.StatusOK, byID.Code)
	require.Equal(t, http.StatusOK, byName.Code)
	assert.Equal(t, decode[hierarchy.Area](t, byID), decode[hierarchy.Area](t, byName))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestAreas_AppendIndex(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodPut, "/api/areas/area-riverside/sub_chair_ids", AreaIndexRequest{PersonID: "p-ana"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"p-ana"}, decode[hierarchy.Area](t, rec).SubChairIDs)

	rec = srv.do(t, http.MethodPut, "/api/areas/area-riverside/treasurer", AreaIndexRequest{PersonID: "p-ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPut, "/api/areas/area-riverside/observer", AreaIndexRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecords_CollectionsAndFilters(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/sub-chairs?area_name=Riverside", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	subs := decode[[]hierarchy.TierRecord](t, rec)
	require.Len(t, subs, 2)
	assert.Equal(t, "Ana Cruz", subs[0].PersonName)
	assert.Equal(t, "Leo Santos", subs[0].ChairName)

	rec = srv.do(t, http.MethodGet, "/api/members?parent_id=p-lito", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[[]hierarchy.TierRecord](t, rec)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.Equal(t, hierarchy.TierMember, m.Tier)
		assert.Equal(t, "Gina Lopez", m.SectionChiefName)
		assert.Equal(t, "Ana Cruz", m.SubChairName)
	}

	rec = srv.do(t, http.MethodPut, "/api/members/"+members[0].ID, UpdateRecordRequest{Zone: "Purok 9"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Purok 9", decode[hierarchy.TierRecord](t, rec).Zone)
}

func TestRecords_CreateTakesTierFromCollection(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodPost, "/api/cell-leaders", hierarchy.TierRecord{
		ID: "r-1", Tier: hierarchy.TierChair, PersonID: "p-lito", PersonName: "Lito Garcia", AreaID: "area-riverside",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, hierarchy.TierCellLeader, decode[hierarchy.TierRecord](t, rec).Tier)
}

// =============================================================================
// ENGINE
// =============================================================================

func TestSuggest_RanksAndExcludes(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/hierarchy/suggest?area=area-riverside&q=cruz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]SuggestionDTO](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana Cruz", got[0].Name, "ties keep roster order")
	assert.Equal(t, "Anabel Cruz", got[1].Name)

	rec = srv.do(t, http.MethodGet, "/api/hierarchy/suggest?area_name=riverside&q=cruz&exclude_assigned=true", nil)
	got = decode[[]SuggestionDTO](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "p-anabel", got[0].ID)

	rec = srv.do(t, http.MethodGet, "/api/hierarchy/suggest?area=area-riverside&q=cruz&exclude=p-ana,p-anabel", nil)
	assert.Empty(t, decode[[]SuggestionDTO](t, rec))
}

func TestSuggest_UnknownArea(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodGet, "/api/hierarchy/suggest?area_name=Atlantis&q=ana", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssign_FullChain(t *testing.T) {
	// GIVEN: A roster with nobody assigned
	srv := newTestServer(t, "riverside")

	// WHEN: Assigning top down
	for _, req := range []hierarchy.AssignRequest{
		{PersonID: "p-leo", Tier: hierarchy.TierChair},
		{PersonID: "p-ana", Tier: hierarchy.TierSubChair},
		{PersonID: "p-gina", Tier: hierarchy.TierSectionChief, ParentID: "p-ana"},
	} {
		rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	// THEN: The area and the records reflect it
	rec := srv.do(t, http.MethodGet, "/api/areas/area-riverside", nil)
	area := decode[hierarchy.Area](t, rec)
	assert.Equal(t, "p-leo", area.ChairID)
	assert.Equal(t, []string{"p-ana"}, area.SubChairIDs)

	rec = srv.do(t, http.MethodGet, "/api/section-chiefs?person_id=p-gina", nil)
	recs := decode[[]hierarchy.TierRecord](t, rec)
	require.Len(t, recs, 1)
	assert.Equal(t, "p-ana", recs[0].SubChairID)
	assert.Equal(t, "Leo Santos", recs[0].ChairName)
}

func TestAssign_RuleViolationsAreConflicts(t *testing.T) {
	srv := newTestServer(t, "riverside")

	tests := []struct {
		name string
		req  hierarchy.AssignRequest
		code hierarchy.AssignmentCode
	}{
		{"no chair", hierarchy.AssignRequest{PersonID: "p-ana", Tier: hierarchy.TierSubChair}, hierarchy.CodeNoChairSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", tt.req)

			assert.Equal(t, http.StatusConflict, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, string(tt.code), resp.Code)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestAssign_InvalidTierIsBadRequest(t *testing.T) {
	srv := newTestServer(t, "riverside")

	for _, tier := range []hierarchy.Tier{"captain", ""} {
		rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "p-ana", Tier: tier})

		assert.Equal(t, http.StatusBadRequest, rec.Code, "tier %q", tier)
		assert.Equal(t, string(hierarchy.CodeInvalidTier), decode[ErrorResponse](t, rec).Code)
	}
}

func TestAssign_TierIsCaseInsensitive(t *testing.T) {
	// GIVEN: Riverside with a chair
	// WHEN: Ana is assigned with a mixed-case tier
	// THEN: she becomes a sub_chair
	srv := newTestServer(t, "riverside")
	rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "p-leo", Tier: " Chair"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "p-ana", Tier: "Sub_Chair"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, hierarchy.TierSubChair, decode[hierarchy.AssignResult](t, rec).Person.Tier)
}

func TestAssign_SecondChairAndRoleConflict(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "p-olga", Tier: hierarchy.TierChair})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(hierarchy.CodeChairTaken), decode[ErrorResponse](t, rec).Code)

	rec = srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "p-gina", Tier: hierarchy.TierSubChair})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(hierarchy.CodeRoleConflict), decode[ErrorResponse](t, rec).Code)
}

func TestAssign_UnknownPersonIsNotFound(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodPost, "/api/hierarchy/assign", hierarchy.AssignRequest{PersonID: "ghost", Tier: hierarchy.TierChair})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpline_Member(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/hierarchy/people/p-mara/upline", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[UplineResponse](t, rec)
	assert.Equal(t, hierarchy.TierMember, resp.Tier)
	var got []string
	for _, e := range resp.Upline {
		got = append(got, e.Name)
	}
	assert.Equal(t, []string{"Lito Garcia", "Gina Lopez", "Ana Cruz", "Leo Santos"}, got)
}

func TestUpline_UnassignedPlaceholder(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/hierarchy/people/p-olga/upline", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[UplineResponse](t, rec)
	require.Len(t, resp.Upline, 1)
	assert.True(t, resp.Upline[0].Placeholder)
}

func TestDownline_ChairAndLeaf(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/hierarchy/people/p-leo/downline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	down := decode[DownlineResponse](t, rec).Downline
	require.Len(t, down["sub_chair"], 2)
	assert.Equal(t, "Ana Cruz", down["sub_chair"][0].Name)
	assert.Equal(t, "0917-000-0002", down["sub_chair"][0].PhoneNumber, "joined from the roster")

	rec = srv.do(t, http.MethodGet, "/api/hierarchy/people/p-mara/downline", nil)
	down = decode[DownlineResponse](t, rec).Downline
	require.Contains(t, down, hierarchy.NoDownlineKey)

	rec = srv.do(t, http.MethodGet, "/api/hierarchy/people/ghost/downline", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFunctionary_TagAndIndex(t *testing.T) {
	srv := newTestServer(t, "riverside")

	rec := srv.do(t, http.MethodPost, "/api/hierarchy/functionary", FunctionaryRequest{PersonID: "p-ben", Tag: "Safety_Officer"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"safety_officer"}, decode[hierarchy.Person](t, rec).Functionary)

	rec = srv.do(t, http.MethodGet, "/api/areas/area-riverside", nil)
	assert.Equal(t, []string{"p-ben"}, decode[hierarchy.Area](t, rec).Functionaries["safety_officer"])

	rec = srv.do(t, http.MethodPost, "/api/hierarchy/functionary", FunctionaryRequest{PersonID: "p-ben", Tag: "treasurer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// STATS / SCENARIOS
// =============================================================================

func TestStats_AreaProgress(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/stats/count?area_name=Riverside", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[AreaStatsDTO](t, rec)
	assert.Equal(t, 9, stats.People)
	assert.Equal(t, 7, stats.Assigned)
	assert.Equal(t, 2, stats.ByTier[hierarchy.TierSubChair])
	assert.Equal(t, 2, stats.ByTier[hierarchy.TierMember])
	assert.True(t, decimal.RequireFromString("58.33").Equal(stats.Progress), stats.Progress.String())
}

func TestStats_RolesByMunicipality(t *testing.T) {
	srv := newTestServer(t, "riverside-chain")

	rec := srv.do(t, http.MethodGet, "/api/stats/roles-by-municipality?municipality=San%20Isidro", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[MunicipalityStatsDTO](t, rec)
	assert.Equal(t, 2, stats.Areas)
	assert.Equal(t, 1, stats.ByTier[hierarchy.TierChair])

	rec = srv.do(t, http.MethodGet, "/api/stats/roles-by-municipality", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgress_ZeroTarget(t *testing.T) {
	assert.True(t, progress(3, 0).IsZero())
	assert.Equal(t, "100", progress(4, 4).String())
	assert.Equal(t, "33.33", progress(1, 3).String())
}

func TestScenarios_LoadAndCurrent(t *testing.T) {
	srv := newTestServer(t, "")

	rec := srv.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Scenarios(), decode[[]ScenarioDTO](t, rec))

	rec = srv.do(t, http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))

	rec = srv.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "riverside-chain"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "riverside-chain", decode[ScenarioDTO](t, rec).ID)

	rec = srv.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenarios_ConcurrentResetAndCurrent(t *testing.T) {
	srv := newTestServer(t, "")

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			srv.do(t, http.MethodPost, "/api/scenarios/reset", nil)
			return nil
		})
		g.Go(func() error {
			srv.do(t, http.MethodGet, "/api/scenarios/current", nil)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	rec := srv.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))
}
