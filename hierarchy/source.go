/*
source.go - Data access contract for the hierarchy engine

PURPOSE:
  The backing store is an external REST service. DataSource is the Go shape
  of the operations the engine depends on; it is implemented by:
  - client.Client:        HTTP JSON client against a remote service
  - store/sqlite.Store:   SQLite, used by the bundled reference server
  - hierarchy/store.Memory: in-memory, for tests and development

CONTRACT:
  - Lists preserve insertion order. Suggestion tie-breaking depends on it.
  - Missing entities return an error matching ErrNotFound.
  - Writes are independent calls. Nothing here is transactional.
  - Area-scoped reads accept an AreaRef keyed by id OR display name.
*/
package hierarchy

import "context"

// RecordFilter narrows a record collection. Empty fields do not filter.
type RecordFilter struct {
	Area     AreaRef
	ParentID string
	PersonID string
}

// Matches reports whether rec passes the filter. Area-by-name filtering
// needs the area's id resolved by the caller, so only Area.ID is checked.
func (f RecordFilter) Matches(rec TierRecord) bool {
	if f.Area.ID != "" && rec.AreaID != f.Area.ID {
		return false
	}
	if f.ParentID != "" && rec.ParentID() != f.ParentID {
		return false
	}
	if f.PersonID != "" && rec.PersonID != f.PersonID {
		return false
	}
	return true
}

// PeopleSource reads and updates people.
type PeopleSource interface {
	ListPeople(ctx context.Context, area AreaRef) ([]Person, error)
	GetPerson(ctx context.Context, id string) (Person, error)
	UpdatePerson(ctx context.Context, id string, patch PersonPatch) (Person, error)
}

// AreaSource reads and updates areas.
type AreaSource interface {
	ListAreas(ctx context.Context) ([]Area, error)
	GetArea(ctx context.Context, ref AreaRef) (Area, error)
	UpdateArea(ctx context.Context, id string, patch AreaPatch) (Area, error)

	// AppendAreaIndex appends personID to the named area array
	// (sub_chair_ids or a functionary tag list).
	AppendAreaIndex(ctx context.Context, areaID, index, personID string) (Area, error)
}

// RecordSource reads and writes the per-tier record collections.
type RecordSource interface {
	ListRecords(ctx context.Context, tier Tier, filter RecordFilter) ([]TierRecord, error)
	CreateRecord(ctx context.Context, rec TierRecord) (TierRecord, error)
}

// DataSource is everything the engine needs from the backing store.
type DataSource interface {
	PeopleSource
	AreaSource
	RecordSource
}
