package hierarchy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/hierarchy-engine/hierarchy"
	"github.com/warp/hierarchy-engine/hierarchy/store"
	"go.uber.org/zap"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	riverside = "area-riverside"
	hillcrest = "area-hillcrest"
)

func newTestSource(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	m.AddArea(hierarchy.Area{
		ID:           riverside,
		Name:         "Riverside",
		Municipality: "San Isidro",
		ZoneList:     []string{"Purok 1", "Purok 2"},
		Target:       50,
	})
	m.AddArea(hierarchy.Area{ID: hillcrest, Name: "Hillcrest", Municipality: "San Isidro"})

	for _, p := range []hierarchy.Person{
		{ID: "p-leo", Name: "Leo Santos", AreaID: riverside, Zone: "Purok 1", Precinct: "0012A", PhoneNumber: "0917-000-0001"},
		{ID: "p-ana", Name: "Ana Cruz", AreaID: riverside, Zone: "Purok 1", Precinct: "0012A", PhoneNumber: "0917-000-0002"},
		{ID: "p-ben", Name: "Ben Reyes", AreaID: riverside, Zone: "Purok 2", Precinct: "0012B"},
		{ID: "p-anabel", Name: "Anabel Cruz", AreaID: riverside, Zone: "Purok 2", Precinct: "0012B"},
		{ID: "p-gina", Name: "Gina Lopez", AreaID: riverside, Zone: "Purok 2", Precinct: "0013A", PhoneNumber: "0917-000-0005"},
		{ID: "p-lito", Name: "Lito Garcia", AreaID: riverside, Zone: "Purok 2", Precinct: "0013A"},
		{ID: "p-mara", Name: "Mara Dizon", AreaID: riverside, Zone: "Purok 2", Precinct: "0013B"},
		{ID: "p-hilda", Name: "Hilda Ramos", AreaID: hillcrest, Zone: "Purok 9"},
	} {
		m.AddPerson(p)
	}
	return m
}

type engine struct {
	src      *store.Memory
	dir      *hierarchy.Directory
	assigner *hierarchy.Assigner
	resolver *hierarchy.Resolver
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	src := newTestSource(t)
	logger := zap.NewNop()
	dir := hierarchy.NewDirectory(src, logger)
	_, err := dir.Load(context.Background(), hierarchy.AreaByID(riverside))
	require.NoError(t, err)
	return &engine{
		src:      src,
		dir:      dir,
		assigner: hierarchy.NewAssigner(src, dir, logger),
		resolver: hierarchy.NewResolver(src, dir, logger),
	}
}

func (e *engine) assign(t *testing.T, personID string, tier hierarchy.Tier, parentID string) {
	t.Helper()
	_, err := e.assigner.Assign(context.Background(), hierarchy.AssignRequest{
		PersonID: personID,
		Tier:     tier,
		ParentID: parentID,
	})
	require.NoError(t, err)
}

// buildChain assigns Leo (chair) -> Ana (sub_chair) -> Gina (section_chief)
// -> Lito (cell_leader).
func (e *engine) buildChain(t *testing.T) {
	t.Helper()
	e.assign(t, "p-leo", hierarchy.TierChair, "")
	e.assign(t, "p-ana", hierarchy.TierSubChair, "")
	e.assign(t, "p-gina", hierarchy.TierSectionChief, "p-ana")
	e.assign(t, "p-lito", hierarchy.TierCellLeader, "p-gina")
}

func (e *engine) person(t *testing.T, id string) hierarchy.Person {
	t.Helper()
	p, err := e.src.GetPerson(context.Background(), id)
	require.NoError(t, err)
	return p
}

func names(people []hierarchy.Person) []string {
	out := make([]string, len(people))
	for i, p := range people {
		out[i] = p.Name
	}
	return out
}
