/*
resolver.go - Upline and downline resolution

PURPOSE:
  Given an assigned person, walks TierRecords to produce:
  - Upline:   ancestors from the immediate parent up to the chair
  - Downline: direct children one tier below, grouped by tier

UPLINE WALK:
  The person's own record stores denormalized ids/names for every ancestor
  it knows about. Those are read first. When an ancestor is missing there,
  the walk follows the nearest resolved ancestor's own record instead, and
  for the chair falls back to the area singleton.

    cell_leader L  --record-->  section_chief G, sub_chair S, chair C
    Upline(L) = [G, S, C]

PLACEHOLDERS:
  Resolution never returns an error. "Nothing found" and "transport failed"
  are both single placeholder entries the caller can display directly:
  - Upline:   one entry with Placeholder=true
  - Downline: one entry under NoDownlineKey or ErrorKey
*/
package hierarchy

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	// NoDownlineKey groups the placeholder returned when a person has no children.
	NoDownlineKey = "NoDownline"
	// ErrorKey groups the placeholder returned when resolution failed.
	ErrorKey = "Error"
)

// UplineEntry is one ancestor, or a placeholder.
type UplineEntry struct {
	Tier        Tier   `json:"tier"`
	PersonID    string `json:"person_id,omitempty"`
	Name        string `json:"name"`
	Placeholder bool   `json:"placeholder,omitempty"`
	Failed      bool   `json:"failed,omitempty"`
}

// DownlineEntry is one child joined with its directory attributes, or a placeholder.
type DownlineEntry struct {
	PersonID    string `json:"person_id,omitempty"`
	Name        string `json:"name"`
	Tier        Tier   `json:"tier,omitempty"`
	Zone        string `json:"zone,omitempty"`
	Precinct    string `json:"precinct,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Downline groups children by tier.
type Downline map[string][]DownlineEntry

// Resolver computes uplines and downlines.
type Resolver struct {
	src    DataSource
	dir    *Directory
	logger *zap.Logger
}

// NewResolver creates a resolver. dir may be nil, in which case display
// attributes come from the records alone.
func NewResolver(src DataSource, dir *Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{src: src, dir: dir, logger: logger}
}

// =============================================================================
// UPLINE
// =============================================================================

// Upline returns person's ancestors, nearest first.
func (r *Resolver) Upline(ctx context.Context, person Person) []UplineEntry {
	spec, ok := person.Tier.Spec()
	if !ok || !spec.HasRecords() {
		return noUpline(person.Tier)
	}

	own, found, err := r.findRecord(ctx, person.Tier, person.AreaID, person.ID)
	if err != nil {
		return r.uplineFailed(person, err)
	}
	if !found {
		return noUpline(person.Tier)
	}

	var chain []UplineEntry
	last := &own
	lastID, lastTier := person.ID, person.Tier

	for t := person.Tier.Parent(); t != TierNone; t = t.Parent() {
		id, name := own.Ancestor(t)
		if id == "" {
			if last == nil {
				rec, ok, err := r.findRecord(ctx, lastTier, person.AreaID, lastID)
				if err != nil {
					return r.uplineFailed(person, err)
				}
				if ok {
					last = &rec
				}
			}
			if last != nil {
				id, name = last.Ancestor(t)
			}
		}
		if id == "" && t == TierChair {
			area, err := r.src.GetArea(ctx, AreaByID(person.AreaID))
			if err != nil {
				return r.uplineFailed(person, err)
			}
			if area.HasChair() {
				id, name = area.ChairID, area.ChairName
			}
		}
		if id == "" {
			break
		}
		if name == "" {
			name = r.displayName(ctx, id)
		}

		chain = append(chain, UplineEntry{Tier: t, PersonID: id, Name: name})
		lastID, lastTier, last = id, t, nil
	}

	if len(chain) == 0 {
		return noUpline(person.Tier)
	}
	return chain
}

func noUpline(t Tier) []UplineEntry {
	label := string(t)
	if t == TierNone {
		label = "unassigned"
	}
	return []UplineEntry{{
		Tier:        t,
		Name:        fmt.Sprintf("No upline found for %s", label),
		Placeholder: true,
	}}
}

func (r *Resolver) uplineFailed(person Person, err error) []UplineEntry {
	r.logger.Error("upline resolution failed",
		zap.String("person_id", person.ID),
		zap.String("tier", string(person.Tier)),
		zap.Error(err))
	return []UplineEntry{{
		Tier:        person.Tier,
		Name:        fmt.Sprintf("Unable to load upline for %s: %v", person.Name, err),
		Placeholder: true,
		Failed:      true,
	}}
}

// =============================================================================
// DOWNLINE
// =============================================================================

// Downline returns the direct children of person, keyed by child tier.
func (r *Resolver) Downline(ctx context.Context, person Person) Downline {
	child := person.Tier.Child()
	if !person.Tier.Restricted() || child == TierNone {
		return noDownline(person)
	}

	recs, err := r.src.ListRecords(ctx, child, RecordFilter{Area: AreaByID(person.AreaID)})
	if err != nil {
		r.logger.Error("downline resolution failed",
			zap.String("person_id", person.ID),
			zap.String("tier", string(person.Tier)),
			zap.Error(err))
		return Downline{ErrorKey: {{
			Name:        fmt.Sprintf("Unable to load downline for %s: %v", person.Name, err),
			Placeholder: true,
		}}}
	}

	var entries []DownlineEntry
	for _, rec := range recs {
		if rec.ParentID() != person.ID {
			continue
		}
		entries = append(entries, r.joinDirectory(rec))
	}

	if len(entries) == 0 {
		return noDownline(person)
	}
	return Downline{string(child): entries}
}

func noDownline(person Person) Downline {
	return Downline{NoDownlineKey: {{
		Name:        fmt.Sprintf("No downline found for %s", person.Name),
		Placeholder: true,
	}}}
}

func (r *Resolver) joinDirectory(rec TierRecord) DownlineEntry {
	e := DownlineEntry{
		PersonID: rec.PersonID,
		Name:     rec.PersonName,
		Tier:     rec.Tier,
		Zone:     rec.Zone,
	}
	if r.dir == nil {
		return e
	}
	if p, ok := r.dir.Person(rec.PersonID); ok {
		e.Name = p.Name
		e.Precinct = p.Precinct
		e.PhoneNumber = p.PhoneNumber
		if p.Zone != "" {
			e.Zone = p.Zone
		}
	}
	return e
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (r *Resolver) findRecord(ctx context.Context, tier Tier, areaID, personID string) (TierRecord, bool, error) {
	recs, err := r.src.ListRecords(ctx, tier, RecordFilter{Area: AreaByID(areaID), PersonID: personID})
	if err != nil {
		return TierRecord{}, false, &FetchError{Op: "records " + string(tier), Err: err}
	}
	for _, rec := range recs {
		if rec.PersonID == personID {
			return rec, true, nil
		}
	}
	return TierRecord{}, false, nil
}

func (r *Resolver) displayName(ctx context.Context, id string) string {
	if r.dir != nil {
		if p, ok := r.dir.Person(id); ok {
			return p.Name
		}
	}
	p, err := r.src.GetPerson(ctx, id)
	if err != nil {
		r.logger.Warn("ancestor name lookup failed", zap.String("person_id", id), zap.Error(err))
		return id
	}
	return p.Name
}
