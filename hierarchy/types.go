/*
types.go - Core types for the area hierarchy engine

PURPOSE:
  Defines the five-tier hierarchy and the records that link people into it.
  Every component (directory, matcher, validator, resolver, assigner) works
  on these types and never on transport-specific structs.

TIER ORDER:
  chair -> sub_chair -> section_chief -> cell_leader -> member

  A person holds at most one tier. The tier table (tierSpecs) is the single
  place that knows which collection stores a tier's records, which field on
  a record points at the parent, and which tier sits below it.

RECORDS:
  A TierRecord is the edge between a person and their parent. There is no
  separate edge table: the record's existence IS the edge. Records carry
  denormalized ancestor ids and names so that an upline can usually be read
  from a single row.

AREA SCOPING:
  Everything is scoped per area (barangay). Call sites key an area either by
  id or by display name, so AreaRef carries one of the two.

SEE ALSO:
  - validator.go: Assignment rules over these types
  - resolver.go: Upline/downline walk over TierRecords
  - source.go: Data access contract
*/
package hierarchy

import (
	"fmt"
	"strings"
)

// =============================================================================
// TIERS
// =============================================================================

// Tier is a rank in the fixed hierarchy order.
type Tier string

const (
	TierNone         Tier = ""
	TierChair        Tier = "chair"
	TierSubChair     Tier = "sub_chair"
	TierSectionChief Tier = "section_chief"
	TierCellLeader   Tier = "cell_leader"
	TierMember       Tier = "member"
)

// TierOrder is the hierarchy from the top down.
var TierOrder = []Tier{TierChair, TierSubChair, TierSectionChief, TierCellLeader, TierMember}

// ParseTier converts a wire string into a Tier. The empty string is TierNone.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.TrimSpace(strings.ToLower(s)))
	if t == TierNone {
		return TierNone, nil
	}
	if _, ok := tierSpecs[t]; !ok {
		return TierNone, fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// Restricted reports whether t is one of the five hierarchy tiers.
// A person holding a restricted tier cannot be assigned another.
func (t Tier) Restricted() bool {
	_, ok := tierSpecs[t]
	return ok
}

// Rank returns the position of t in TierOrder, or -1.
func (t Tier) Rank() int {
	for i, o := range TierOrder {
		if o == t {
			return i
		}
	}
	return -1
}

// Parent returns the tier directly above t (TierNone for chair).
func (t Tier) Parent() Tier { return tierSpecs[t].Parent }

// Child returns the tier directly below t (TierNone for member).
func (t Tier) Child() Tier { return tierSpecs[t].Child }

// Label is the human-readable name for the tier.
func (t Tier) Label() string {
	if s, ok := tierSpecs[t]; ok {
		return s.Label
	}
	return "Unassigned"
}

// Spec returns the tier's metadata.
func (t Tier) Spec() (TierSpec, bool) {
	s, ok := tierSpecs[t]
	return s, ok
}

// TierSpec is the static metadata that drives the generic engine.
type TierSpec struct {
	Tier   Tier
	Parent Tier
	Child  Tier

	// Collection is the REST collection holding records for this tier.
	// Empty for chair: the chair lives on the Area singleton.
	Collection string

	// ParentField is the record field naming the immediate parent.
	ParentField string

	// AreaIndex is the Area array that lists promoted persons, if any.
	AreaIndex string

	Label string
}

// HasRecords reports whether assignments to this tier create a TierRecord.
func (s TierSpec) HasRecords() bool { return s.Collection != "" }

var tierSpecs = map[Tier]TierSpec{
	TierChair: {
		Tier:  TierChair,
		Child: TierSubChair,
		Label: "Chair",
	},
	TierSubChair: {
		Tier:        TierSubChair,
		Parent:      TierChair,
		Child:       TierSectionChief,
		Collection:  "sub-chairs",
		ParentField: "chair_id",
		AreaIndex:   AreaIndexSubChairs,
		Label:       "Sub-chair",
	},
	TierSectionChief: {
		Tier:        TierSectionChief,
		Parent:      TierSubChair,
		Child:       TierCellLeader,
		Collection:  "section-chiefs",
		ParentField: "sub_chair_id",
		Label:       "Section chief",
	},
	TierCellLeader: {
		Tier:        TierCellLeader,
		Parent:      TierSectionChief,
		Child:       TierMember,
		Collection:  "cell-leaders",
		ParentField: "section_chief_id",
		Label:       "Cell leader",
	},
	TierMember: {
		Tier:        TierMember,
		Parent:      TierCellLeader,
		Collection:  "members",
		ParentField: "cell_leader_id",
		Label:       "Member",
	},
}

// RecordTiers lists the tiers stored as TierRecords, top down.
var RecordTiers = []Tier{TierSubChair, TierSectionChief, TierCellLeader, TierMember}

// =============================================================================
// FUNCTIONARY TAGS
// =============================================================================

// Functionary is a secondary role independent of the tier. A person may hold
// any number of them.
type Functionary string

const (
	FunctionaryObserver Functionary = "observer"
	FunctionarySafety   Functionary = "safety_officer"
	FunctionaryMediator Functionary = "mediator"
)

// Functionaries lists the known tags.
var Functionaries = []Functionary{FunctionaryObserver, FunctionarySafety, FunctionaryMediator}

// ParseFunctionary validates a functionary tag.
func ParseFunctionary(s string) (Functionary, error) {
	f := Functionary(strings.TrimSpace(strings.ToLower(s)))
	for _, known := range Functionaries {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFunctionary, s)
}

// AreaIndexSubChairs is the Area array listing promoted sub-chairs.
const AreaIndexSubChairs = "sub_chair_ids"

// =============================================================================
// PEOPLE AND AREAS
// =============================================================================

// Person is a registered individual. Tier is TierNone until assigned.
type Person struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Tier         Tier     `json:"tier"`
	Functionary  []string `json:"functionary,omitempty"`
	AreaID       string   `json:"area_id"`
	Precinct     string   `json:"precinct,omitempty"`
	Zone         string   `json:"zone,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	ReferredByID string   `json:"referred_by_id,omitempty"`
}

// HasFunctionary reports whether p carries the tag.
func (p Person) HasFunctionary(f Functionary) bool {
	for _, tag := range p.Functionary {
		if tag == string(f) {
			return true
		}
	}
	return false
}

// PersonPatch is a partial update. Nil fields are left unchanged.
type PersonPatch struct {
	Tier           *Tier   `json:"tier,omitempty"`
	Zone           *string `json:"zone,omitempty"`
	PhoneNumber    *string `json:"phone_number,omitempty"`
	AreaID         *string `json:"area_id,omitempty"`
	AddFunctionary *string `json:"add_functionary,omitempty"`
}

// Apply returns p with the patch applied.
func (pp PersonPatch) Apply(p Person) Person {
	if pp.Tier != nil {
		p.Tier = *pp.Tier
	}
	if pp.Zone != nil {
		p.Zone = *pp.Zone
	}
	if pp.PhoneNumber != nil {
		p.PhoneNumber = *pp.PhoneNumber
	}
	if pp.AreaID != nil {
		p.AreaID = *pp.AreaID
	}
	if pp.AddFunctionary != nil && !p.HasFunctionary(Functionary(*pp.AddFunctionary)) {
		p.Functionary = append(append([]string{}, p.Functionary...), *pp.AddFunctionary)
	}
	return p
}

// Area is the scoping unit. It has at most one chair.
type Area struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Municipality string `json:"municipality,omitempty"`

	ChairID   string `json:"chair_id,omitempty"`
	ChairName string `json:"chair_name,omitempty"`

	// SubChairIDs lists person ids promoted to sub_chair. Append-only.
	SubChairIDs []string `json:"sub_chair_ids"`

	// Functionaries maps a tag to the person ids carrying it.
	Functionaries map[string][]string `json:"functionaries,omitempty"`

	ZoneList []string `json:"zone_list,omitempty"`
	Target   int      `json:"target"`
}

// Index returns the contents of a named area index array.
func (a Area) Index(name string) []string {
	if name == AreaIndexSubChairs {
		return a.SubChairIDs
	}
	return a.Functionaries[name]
}

// HasChair reports whether the singleton chair slot is filled.
func (a Area) HasChair() bool { return a.ChairID != "" }

// AreaPatch is a partial update of an area's singleton fields.
type AreaPatch struct {
	ChairID   *string  `json:"chair_id,omitempty"`
	ChairName *string  `json:"chair_name,omitempty"`
	ZoneList  []string `json:"zone_list,omitempty"`
	Target    *int     `json:"target,omitempty"`
}

// Apply returns a with the patch applied.
func (ap AreaPatch) Apply(a Area) Area {
	if ap.ChairID != nil {
		a.ChairID = *ap.ChairID
	}
	if ap.ChairName != nil {
		a.ChairName = *ap.ChairName
	}
	if ap.ZoneList != nil {
		a.ZoneList = ap.ZoneList
	}
	if ap.Target != nil {
		a.Target = *ap.Target
	}
	return a
}

// AreaRef keys an area by id or by display name. Exactly one should be set;
// when both are, ID wins.
type AreaRef struct {
	ID   string
	Name string
}

// AreaByID returns a reference keyed on the area id.
func AreaByID(id string) AreaRef { return AreaRef{ID: id} }

// AreaByName returns a reference keyed on the area display name.
func AreaByName(name string) AreaRef { return AreaRef{Name: name} }

// Matches reports whether a is the area referenced.
func (r AreaRef) Matches(a Area) bool {
	if r.ID != "" {
		return a.ID == r.ID
	}
	return r.Name != "" && strings.EqualFold(a.Name, r.Name)
}

// IsZero reports whether the reference is empty.
func (r AreaRef) IsZero() bool { return r.ID == "" && r.Name == "" }

func (r AreaRef) String() string {
	if r.ID != "" {
		return r.ID
	}
	return "name:" + r.Name
}

// =============================================================================
// TIER RECORDS
// =============================================================================

// TierRecord places a person in a tier below chair and links the parent.
// Only the ancestor fields above Tier are meaningful.
type TierRecord struct {
	ID         string `json:"id"`
	Tier       Tier   `json:"tier"`
	PersonID   string `json:"person_id"`
	PersonName string `json:"person_name"`
	AreaID     string `json:"area_id"`
	Zone       string `json:"zone,omitempty"`

	ChairID          string `json:"chair_id,omitempty"`
	ChairName        string `json:"chair_name,omitempty"`
	SubChairID       string `json:"sub_chair_id,omitempty"`
	SubChairName     string `json:"sub_chair_name,omitempty"`
	SectionChiefID   string `json:"section_chief_id,omitempty"`
	SectionChiefName string `json:"section_chief_name,omitempty"`
	CellLeaderID     string `json:"cell_leader_id,omitempty"`
	CellLeaderName   string `json:"cell_leader_name,omitempty"`
}

// Ancestor returns the denormalized id and name stored for an ancestor tier.
func (r TierRecord) Ancestor(t Tier) (id, name string) {
	switch t {
	case TierChair:
		return r.ChairID, r.ChairName
	case TierSubChair:
		return r.SubChairID, r.SubChairName
	case TierSectionChief:
		return r.SectionChiefID, r.SectionChiefName
	case TierCellLeader:
		return r.CellLeaderID, r.CellLeaderName
	}
	return "", ""
}

// SetAncestor stores the id and name for an ancestor tier.
func (r *TierRecord) SetAncestor(t Tier, id, name string) {
	switch t {
	case TierChair:
		r.ChairID, r.ChairName = id, name
	case TierSubChair:
		r.SubChairID, r.SubChairName = id, name
	case TierSectionChief:
		r.SectionChiefID, r.SectionChiefName = id, name
	case TierCellLeader:
		r.CellLeaderID, r.CellLeaderName = id, name
	}
}

// ParentID is the person id of the immediate parent.
func (r TierRecord) ParentID() string {
	id, _ := r.Ancestor(r.Tier.Parent())
	return id
}
