// Package store provides DataSource implementations.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/warp/hierarchy-engine/hierarchy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in insertion-ordered slices.
type Memory struct {
	mu      sync.RWMutex
	areas   []hierarchy.Area
	people  []hierarchy.Person
	records map[hierarchy.Tier][]hierarchy.TierRecord

	// failures maps an operation name to the error its next call returns.
	failures map[string]error
	calls    map[string]int
}

// Operation names accepted by FailNext.
const (
	OpListPeople      = "ListPeople"
	OpGetPerson       = "GetPerson"
	OpUpdatePerson    = "UpdatePerson"
	OpListAreas       = "ListAreas"
	OpGetArea         = "GetArea"
	OpUpdateArea      = "UpdateArea"
	OpAppendAreaIndex = "AppendAreaIndex"
	OpListRecords     = "ListRecords"
	OpCreateRecord    = "CreateRecord"
)

func NewMemory() *Memory {
	return &Memory{
		records:  make(map[hierarchy.Tier][]hierarchy.TierRecord),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailNext makes the next call to op return err.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// Calls returns how many times op has been called.
func (m *Memory) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

func (m *Memory) enter(op string) error {
	m.calls[op]++
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

// AddArea seeds an area.
func (m *Memory) AddArea(a hierarchy.Area) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas = append(m.areas, a)
}

// AddPerson seeds a person.
func (m *Memory) AddPerson(p hierarchy.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.people = append(m.people, p)
}

// =============================================================================
// PEOPLE
// =============================================================================

func (m *Memory) ListPeople(_ context.Context, ref hierarchy.AreaRef) ([]hierarchy.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpListPeople); err != nil {
		return nil, err
	}

	area, ok := m.findAreaLocked(ref)
	if !ok {
		return []hierarchy.Person{}, nil
	}
	out := []hierarchy.Person{}
	for _, p := range m.people {
		if p.AreaID == area.ID {
			out = append(out, clonePerson(p))
		}
	}
	return out, nil
}

func (m *Memory) GetPerson(_ context.Context, id string) (hierarchy.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGetPerson); err != nil {
		return hierarchy.Person{}, err
	}
	for _, p := range m.people {
		if p.ID == id {
			return clonePerson(p), nil
		}
	}
	return hierarchy.Person{}, fmt.Errorf("person %s: %w", id, hierarchy.ErrNotFound)
}

func (m *Memory) UpdatePerson(_ context.Context, id string, patch hierarchy.PersonPatch) (hierarchy.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdatePerson); err != nil {
		return hierarchy.Person{}, err
	}
	for i, p := range m.people {
		if p.ID == id {
			m.people[i] = patch.Apply(p)
			return clonePerson(m.people[i]), nil
		}
	}
	return hierarchy.Person{}, fmt.Errorf("person %s: %w", id, hierarchy.ErrNotFound)
}

// =============================================================================
// AREAS
// =============================================================================

func (m *Memory) ListAreas(_ context.Context) ([]hierarchy.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpListAreas); err != nil {
		return nil, err
	}
	out := make([]hierarchy.Area, len(m.areas))
	for i, a := range m.areas {
		out[i] = cloneArea(a)
	}
	return out, nil
}

func (m *Memory) GetArea(_ context.Context, ref hierarchy.AreaRef) (hierarchy.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpGetArea); err != nil {
		return hierarchy.Area{}, err
	}
	a, ok := m.findAreaLocked(ref)
	if !ok {
		return hierarchy.Area{}, fmt.Errorf("area %s: %w", ref, hierarchy.ErrNotFound)
	}
	return cloneArea(a), nil
}

func (m *Memory) UpdateArea(_ context.Context, id string, patch hierarchy.AreaPatch) (hierarchy.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpUpdateArea); err != nil {
		return hierarchy.Area{}, err
	}
	for i, a := range m.areas {
		if a.ID == id {
			m.areas[i] = patch.Apply(a)
			return cloneArea(m.areas[i]), nil
		}
	}
	return hierarchy.Area{}, fmt.Errorf("area %s: %w", id, hierarchy.ErrNotFound)
}

func (m *Memory) AppendAreaIndex(_ context.Context, areaID, index, personID string) (hierarchy.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpAppendAreaIndex); err != nil {
		return hierarchy.Area{}, err
	}
	for i, a := range m.areas {
		if a.ID != areaID {
			continue
		}
		if index == hierarchy.AreaIndexSubChairs {
			a.SubChairIDs = append(append([]string{}, a.SubChairIDs...), personID)
		} else {
			fn := make(map[string][]string, len(a.Functionaries)+1)
			for k, v := range a.Functionaries {
				fn[k] = v
			}
			fn[index] = append(append([]string{}, fn[index]...), personID)
			a.Functionaries = fn
		}
		m.areas[i] = a
		return cloneArea(a), nil
	}
	return hierarchy.Area{}, fmt.Errorf("area %s: %w", areaID, hierarchy.ErrNotFound)
}

func (m *Memory) findAreaLocked(ref hierarchy.AreaRef) (hierarchy.Area, bool) {
	for _, a := range m.areas {
		if ref.Matches(a) {
			return a, true
		}
	}
	return hierarchy.Area{}, false
}

// =============================================================================
// RECORDS
// =============================================================================

func (m *Memory) ListRecords(_ context.Context, tier hierarchy.Tier, filter hierarchy.RecordFilter) ([]hierarchy.TierRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpListRecords); err != nil {
		return nil, err
	}

	if filter.Area.ID == "" && filter.Area.Name != "" {
		a, ok := m.findAreaLocked(filter.Area)
		if !ok {
			return []hierarchy.TierRecord{}, nil
		}
		filter.Area = hierarchy.AreaByID(a.ID)
	}

	out := []hierarchy.TierRecord{}
	for _, r := range m.records[tier] {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) CreateRecord(_ context.Context, rec hierarchy.TierRecord) (hierarchy.TierRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateRecord); err != nil {
		return hierarchy.TierRecord{}, err
	}
	if !rec.Tier.Restricted() || rec.Tier == hierarchy.TierChair {
		return hierarchy.TierRecord{}, fmt.Errorf("record tier %q: %w", rec.Tier, hierarchy.ErrInvalidTier)
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = fmt.Sprintf("%s-%d", rec.Tier, len(m.records[rec.Tier])+1)
	}
	m.records[rec.Tier] = append(m.records[rec.Tier], rec)
	return rec, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func clonePerson(p hierarchy.Person) hierarchy.Person {
	if p.Functionary != nil {
		p.Functionary = append([]string{}, p.Functionary...)
	}
	return p
}

func cloneArea(a hierarchy.Area) hierarchy.Area {
	a.SubChairIDs = append([]string{}, a.SubChairIDs...)
	if a.ZoneList != nil {
		a.ZoneList = append([]string{}, a.ZoneList...)
	}
	if a.Functionaries != nil {
		fn := make(map[string][]string, len(a.Functionaries))
		for k, v := range a.Functionaries {
			fn[k] = append([]string{}, v...)
		}
		a.Functionaries = fn
	}
	return a
}

var _ hierarchy.DataSource = (*Memory)(nil)
