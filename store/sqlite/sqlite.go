/*
Package sqlite provides a SQLite-backed implementation of hierarchy.DataSource.

PURPOSE:
  Backs the bundled reference server that speaks the people/areas/records
  REST contract. The engine itself never talks to SQLite directly; it goes
  through hierarchy.DataSource like it would for any remote service.

KEY TABLES:
  areas:        Area singleton fields (chair, zones, target)
  area_indexes: Append-only index arrays (sub_chair_ids, functionary tags)
  people:       Registered people and their current tier
  tier_records: One row per sub_chair/section_chief/cell_leader/member edge

ORDERING:
  Every list is ordered by rowid, i.e. insertion order. The name matcher
  breaks score ties on this order, so it must be stable.

NO DELETES:
  Tier records and index entries are never deleted. Reset() drops everything
  and is only used by scenario loading.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode.

USAGE:
  store, err := sqlite.New("./data/hierarchy.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - hierarchy/source.go: Interface definitions
  - hierarchy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/hierarchy-engine/hierarchy"
)

// Store implements hierarchy.DataSource using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS areas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		municipality TEXT NOT NULL DEFAULT '',
		chair_id TEXT NOT NULL DEFAULT '',
		chair_name TEXT NOT NULL DEFAULT '',
		zone_list_json TEXT NOT NULL DEFAULT '[]',
		target INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_areas_name
		ON areas(name COLLATE NOCASE);
	CREATE INDEX IF NOT EXISTS idx_areas_municipality
		ON areas(municipality COLLATE NOCASE);

	-- Append-only index arrays: sub_chair_ids and one list per functionary tag
	CREATE TABLE IF NOT EXISTS area_indexes (
		area_id TEXT NOT NULL,
		index_name TEXT NOT NULL,
		person_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_area_indexes_area
		ON area_indexes(area_id, index_name);

	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		tier TEXT NOT NULL DEFAULT '',
		functionary_json TEXT NOT NULL DEFAULT '[]',
		area_id TEXT NOT NULL,
		precinct TEXT NOT NULL DEFAULT '',
		zone TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		referred_by_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_people_area
		ON people(area_id);
	CREATE INDEX IF NOT EXISTS idx_people_tier
		ON people(area_id, tier);

	-- One row per hierarchy edge below chair
	CREATE TABLE IF NOT EXISTS tier_records (
		id TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		person_id TEXT NOT NULL,
		person_name TEXT NOT NULL,
		area_id TEXT NOT NULL,
		zone TEXT NOT NULL DEFAULT '',
		chair_id TEXT NOT NULL DEFAULT '',
		chair_name TEXT NOT NULL DEFAULT '',
		sub_chair_id TEXT NOT NULL DEFAULT '',
		sub_chair_name TEXT NOT NULL DEFAULT '',
		section_chief_id TEXT NOT NULL DEFAULT '',
		section_chief_name TEXT NOT NULL DEFAULT '',
		cell_leader_id TEXT NOT NULL DEFAULT '',
		cell_leader_name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tier_records_area
		ON tier_records(tier, area_id);
	CREATE INDEX IF NOT EXISTS idx_tier_records_person
		ON tier_records(tier, person_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset removes all data. Used when loading a scenario.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"tier_records", "area_indexes", "people", "areas"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// PEOPLE
// =============================================================================

const personColumns = `id, name, tier, functionary_json, area_id, precinct, zone, phone_number, referred_by_id`

// SavePerson inserts or replaces a person.
func (s *Store) SavePerson(ctx context.Context, p hierarchy.Person) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePersonLocked(ctx, p)
}

func (s *Store) savePersonLocked(ctx context.Context, p hierarchy.Person) error {
	functionary, _ := json.Marshal(nonNil(p.Functionary))
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO people (` + personColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			tier = excluded.tier,
			functionary_json = excluded.functionary_json,
			area_id = excluded.area_id,
			precinct = excluded.precinct,
			zone = excluded.zone,
			phone_number = excluded.phone_number,
			referred_by_id = excluded.referred_by_id,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, string(p.Tier), string(functionary), p.AreaID,
		p.Precinct, p.Zone, p.PhoneNumber, p.ReferredByID, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	return nil
}

// ListPeople returns the people of an area, keyed by id or name.
func (s *Store) ListPeople(ctx context.Context, ref hierarchy.AreaRef) ([]hierarchy.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	area, err := s.getAreaLocked(ctx, ref)
	if errors.Is(err, hierarchy.ErrNotFound) {
		return []hierarchy.Person{}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+personColumns+" FROM people WHERE area_id = ? ORDER BY rowid", area.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	people := []hierarchy.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPerson retrieves a person by id.
func (s *Store) GetPerson(ctx context.Context, id string) (hierarchy.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPersonLocked(ctx, id)
}

func (s *Store) getPersonLocked(ctx context.Context, id string) (hierarchy.Person, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+personColumns+" FROM people WHERE id = ?", id)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hierarchy.Person{}, fmt.Errorf("person %s: %w", id, hierarchy.ErrNotFound)
	}
	return p, err
}

// UpdatePerson applies a partial update.
func (s *Store) UpdatePerson(ctx context.Context, id string, patch hierarchy.PersonPatch) (hierarchy.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getPersonLocked(ctx, id)
	if err != nil {
		return hierarchy.Person{}, err
	}
	p = patch.Apply(p)
	if err := s.savePersonLocked(ctx, p); err != nil {
		return hierarchy.Person{}, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (hierarchy.Person, error) {
	var (
		p           hierarchy.Person
		tier        string
		functionary string
	)
	err := row.Scan(&p.ID, &p.Name, &tier, &functionary, &p.AreaID,
		&p.Precinct, &p.Zone, &p.PhoneNumber, &p.ReferredByID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan person: %w", err)
	}
	p.Tier = hierarchy.Tier(tier)
	if functionary != "" && functionary != "[]" {
		json.Unmarshal([]byte(functionary), &p.Functionary)
	}
	return p, nil
}

// =============================================================================
// AREAS
// =============================================================================

const areaColumns = `id, name, municipality, chair_id, chair_name, zone_list_json, target`

// SaveArea inserts or replaces an area's singleton fields. Index arrays are
// written through AppendAreaIndex only.
func (s *Store) SaveArea(ctx context.Context, a hierarchy.Area) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAreaLocked(ctx, a)
}

func (s *Store) saveAreaLocked(ctx context.Context, a hierarchy.Area) error {
	zones, _ := json.Marshal(nonNil(a.ZoneList))
	query := `
		INSERT INTO areas (` + areaColumns + `, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			municipality = excluded.municipality,
			chair_id = excluded.chair_id,
			chair_name = excluded.chair_name,
			zone_list_json = excluded.zone_list_json,
			target = excluded.target
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Municipality, a.ChairID, a.ChairName, string(zones), a.Target,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save area: %w", err)
	}
	return nil
}

// ListAreas returns all areas in insertion order.
func (s *Store) ListAreas(ctx context.Context) ([]hierarchy.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAreasLocked(ctx, "SELECT "+areaColumns+" FROM areas ORDER BY rowid")
}

// ListAreasByMunicipality returns the areas of a municipality, matched by name.
func (s *Store) ListAreasByMunicipality(ctx context.Context, municipality string) ([]hierarchy.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAreasLocked(ctx,
		"SELECT "+areaColumns+" FROM areas WHERE municipality = ? COLLATE NOCASE ORDER BY rowid", municipality)
}

func (s *Store) queryAreasLocked(ctx context.Context, query string, args ...any) ([]hierarchy.Area, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query areas: %w", err)
	}
	var areas []hierarchy.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		areas = append(areas, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]hierarchy.Area, 0, len(areas))
	for _, a := range areas {
		a, err := s.loadIndexesLocked(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// GetArea retrieves an area by id or display name.
func (s *Store) GetArea(ctx context.Context, ref hierarchy.AreaRef) (hierarchy.Area, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getAreaLocked(ctx, ref)
}

func (s *Store) getAreaLocked(ctx context.Context, ref hierarchy.AreaRef) (hierarchy.Area, error) {
	var row *sql.Row
	switch {
	case ref.ID != "":
		row = s.db.QueryRowContext(ctx, "SELECT "+areaColumns+" FROM areas WHERE id = ?", ref.ID)
	case ref.Name != "":
		row = s.db.QueryRowContext(ctx,
			"SELECT "+areaColumns+" FROM areas WHERE name = ? COLLATE NOCASE ORDER BY rowid LIMIT 1", ref.Name)
	default:
		return hierarchy.Area{}, fmt.Errorf("area reference is empty: %w", hierarchy.ErrNotFound)
	}

	a, err := scanArea(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hierarchy.Area{}, fmt.Errorf("area %s: %w", ref, hierarchy.ErrNotFound)
	}
	if err != nil {
		return hierarchy.Area{}, err
	}
	return s.loadIndexesLocked(ctx, a)
}

// UpdateArea applies a partial update of the singleton fields.
func (s *Store) UpdateArea(ctx context.Context, id string, patch hierarchy.AreaPatch) (hierarchy.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.getAreaLocked(ctx, hierarchy.AreaByID(id))
	if err != nil {
		return hierarchy.Area{}, err
	}
	a = patch.Apply(a)
	if err := s.saveAreaLocked(ctx, a); err != nil {
		return hierarchy.Area{}, err
	}
	return a, nil
}

// AppendAreaIndex appends personID to an area index array.
func (s *Store) AppendAreaIndex(ctx context.Context, areaID, index, personID string) (hierarchy.Area, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getAreaLocked(ctx, hierarchy.AreaByID(areaID)); err != nil {
		return hierarchy.Area{}, err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO area_indexes (area_id, index_name, person_id, created_at) VALUES (?, ?, ?, ?)",
		areaID, index, personID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return hierarchy.Area{}, fmt.Errorf("failed to append area index: %w", err)
	}
	return s.getAreaLocked(ctx, hierarchy.AreaByID(areaID))
}

func (s *Store) loadIndexesLocked(ctx context.Context, a hierarchy.Area) (hierarchy.Area, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT index_name, person_id FROM area_indexes WHERE area_id = ? ORDER BY rowid", a.ID)
	if err != nil {
		return a, fmt.Errorf("failed to query area indexes: %w", err)
	}
	defer rows.Close()

	a.SubChairIDs = []string{}
	for rows.Next() {
		var name, personID string
		if err := rows.Scan(&name, &personID); err != nil {
			return a, fmt.Errorf("failed to scan area index: %w", err)
		}
		if name == hierarchy.AreaIndexSubChairs {
			a.SubChairIDs = append(a.SubChairIDs, personID)
			continue
		}
		if a.Functionaries == nil {
			a.Functionaries = make(map[string][]string)
		}
		a.Functionaries[name] = append(a.Functionaries[name], personID)
	}
	return a, rows.Err()
}

func scanArea(row scanner) (hierarchy.Area, error) {
	var (
		a     hierarchy.Area
		zones string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Municipality, &a.ChairID, &a.ChairName, &zones, &a.Target)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("failed to scan area: %w", err)
	}
	if zones != "" && zones != "[]" {
		json.Unmarshal([]byte(zones), &a.ZoneList)
	}
	return a, nil
}

// =============================================================================
// TIER RECORDS
// =============================================================================

const recordColumns = `id, tier, person_id, person_name, area_id, zone,
	chair_id, chair_name, sub_chair_id, sub_chair_name,
	section_chief_id, section_chief_name, cell_leader_id, cell_leader_name`

// CreateRecord inserts a tier record.
func (s *Store) CreateRecord(ctx context.Context, rec hierarchy.TierRecord) (hierarchy.TierRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec, ok := rec.Tier.Spec(); !ok || !spec.HasRecords() {
		return hierarchy.TierRecord{}, fmt.Errorf("record tier %q: %w", rec.Tier, hierarchy.ErrInvalidTier)
	}
	if strings.TrimSpace(rec.ID) == "" {
		return hierarchy.TierRecord{}, errors.New("record id is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tier_records (`+recordColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Tier), rec.PersonID, rec.PersonName, rec.AreaID, rec.Zone,
		rec.ChairID, rec.ChairName, rec.SubChairID, rec.SubChairName,
		rec.SectionChiefID, rec.SectionChiefName, rec.CellLeaderID, rec.CellLeaderName,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return hierarchy.TierRecord{}, fmt.Errorf("failed to create record: %w", err)
	}
	return rec, nil
}

// UpdateRecordZone changes the zone on a record. Parent links are immutable.
func (s *Store) UpdateRecordZone(ctx context.Context, tier hierarchy.Tier, id, zone string) (hierarchy.TierRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE tier_records SET zone = ? WHERE tier = ? AND id = ?", zone, string(tier), id)
	if err != nil {
		return hierarchy.TierRecord{}, fmt.Errorf("failed to update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return hierarchy.TierRecord{}, fmt.Errorf("%s record %s: %w", tier, id, hierarchy.ErrNotFound)
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM tier_records WHERE id = ?", id)
	return scanRecord(row)
}

// ListRecords returns the records of one tier, filtered.
func (s *Store) ListRecords(ctx context.Context, tier hierarchy.Tier, filter hierarchy.RecordFilter) ([]hierarchy.TierRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec, ok := tier.Spec()
	if !ok || !spec.HasRecords() {
		return nil, fmt.Errorf("record tier %q: %w", tier, hierarchy.ErrInvalidTier)
	}

	where := []string{"tier = ?"}
	args := []any{string(tier)}

	switch {
	case filter.Area.ID != "":
		where = append(where, "area_id = ?")
		args = append(args, filter.Area.ID)
	case filter.Area.Name != "":
		area, err := s.getAreaLocked(ctx, filter.Area)
		if errors.Is(err, hierarchy.ErrNotFound) {
			return []hierarchy.TierRecord{}, nil
		}
		if err != nil {
			return nil, err
		}
		where = append(where, "area_id = ?")
		args = append(args, area.ID)
	}
	if filter.ParentID != "" {
		// ParentField comes from the static tier table, never from input.
		where = append(where, spec.ParentField+" = ?")
		args = append(args, filter.ParentID)
	}
	if filter.PersonID != "" {
		where = append(where, "person_id = ?")
		args = append(args, filter.PersonID)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM tier_records WHERE "+strings.Join(where, " AND ")+" ORDER BY rowid",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	recs := []hierarchy.TierRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func scanRecord(row scanner) (hierarchy.TierRecord, error) {
	var (
		r    hierarchy.TierRecord
		tier string
	)
	err := row.Scan(&r.ID, &tier, &r.PersonID, &r.PersonName, &r.AreaID, &r.Zone,
		&r.ChairID, &r.ChairName, &r.SubChairID, &r.SubChairName,
		&r.SectionChiefID, &r.SectionChiefName, &r.CellLeaderID, &r.CellLeaderName)
	if err != nil {
		return r, fmt.Errorf("failed to scan record: %w", err)
	}
	r.Tier = hierarchy.Tier(tier)
	return r, nil
}

// =============================================================================
// COUNTS
// =============================================================================

// CountPeople returns how many people an area has.
func (s *Store) CountPeople(ctx context.Context, areaID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM people WHERE area_id = ?", areaID).Scan(&n)
	return n, err
}

// CountByTier returns the number of people per tier for the given areas.
func (s *Store) CountByTier(ctx context.Context, areaIDs ...string) (map[hierarchy.Tier]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[hierarchy.Tier]int, len(hierarchy.TierOrder))
	for _, t := range hierarchy.TierOrder {
		counts[t] = 0
	}
	if len(areaIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(areaIDs)), ",")
	args := make([]any, len(areaIDs))
	for i, id := range areaIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT tier, COUNT(*) FROM people WHERE tier != '' AND area_id IN ("+placeholders+") GROUP BY tier",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tier string
			n    int
		)
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, err
		}
		counts[hierarchy.Tier(tier)] = n
	}
	return counts, rows.Err()
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

var _ hierarchy.DataSource = (*Store)(nil)
