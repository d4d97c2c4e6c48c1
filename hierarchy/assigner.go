/*
assigner.go - Tier assignment write sequence

PURPOSE:
  Runs the validator against fresh data and then performs the writes that
  make an assignment stick.

WRITE SEQUENCE (not atomic):
  1. update_person  set person.tier (and zone)
  2. create_record  create the TierRecord with ancestors copied from the
                    selected parent's record (skipped for chair)
  3. index_area     sub_chair: append to area.sub_chair_ids
                    chair:     set area.chair_id / chair_name

  Each step is an independent call to the data source. If step 2 or 3
  fails, the earlier writes stay in place and a PartialAssignmentError says
  exactly which steps landed. There is no compensation: the backing store
  offers no transaction, and undoing step 1 could fail the same way.

REFRESH:
  After a successful sequence the directory is reloaded. A refresh failure
  is logged; the assignment itself already succeeded.
*/
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignRequest is an operator's confirmed selection.
type AssignRequest struct {
	PersonID string `json:"person_id"`
	Tier     Tier   `json:"tier"`
	// ParentID is the person id of the selected parent, for tiers below sub_chair.
	ParentID string `json:"parent_id,omitempty"`
	Zone     string `json:"zone,omitempty"`
}

// AssignResult is the state after a successful assignment.
type AssignResult struct {
	Person Person      `json:"person"`
	Record *TierRecord `json:"record,omitempty"`
	Area   Area        `json:"area"`
}

// Assigner validates and applies tier assignments.
type Assigner struct {
	src    DataSource
	dir    *Directory
	logger *zap.Logger
	newID  func() string
}

// NewAssigner creates an assigner. dir may be nil.
func NewAssigner(src DataSource, dir *Directory, logger *zap.Logger) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assigner{src: src, dir: dir, logger: logger, newID: uuid.NewString}
}

// Assign checks the rules against fresh data and writes the assignment.
func (a *Assigner) Assign(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	person, err := a.src.GetPerson(ctx, req.PersonID)
	if err != nil {
		return nil, &FetchError{Op: "person " + req.PersonID, Err: err}
	}
	area, err := a.src.GetArea(ctx, AreaByID(person.AreaID))
	if err != nil {
		return nil, &FetchError{Op: "area " + person.AreaID, Err: err}
	}

	actx := AssignContext{
		ChairID:     area.ChairID,
		ParentID:    req.ParentID,
		SubChairIDs: area.SubChairIDs,
	}
	if err := CanAssign(person, req.Tier, actx); err != nil {
		a.logger.Info("assignment rejected",
			zap.String("person_id", person.ID),
			zap.String("tier", string(req.Tier)),
			zap.Error(err))
		return nil, err
	}

	var rec *TierRecord
	if spec, _ := req.Tier.Spec(); spec.HasRecords() {
		built, err := a.buildRecord(ctx, person, area, req)
		if err != nil {
			return nil, err
		}
		rec = &built
	}

	return a.write(ctx, person, area, req, rec)
}

// buildRecord creates the record with ancestors denormalized from the parent.
func (a *Assigner) buildRecord(ctx context.Context, person Person, area Area, req AssignRequest) (TierRecord, error) {
	zone := req.Zone
	if zone == "" {
		zone = person.Zone
	}
	rec := TierRecord{
		ID:         a.newID(),
		Tier:       req.Tier,
		PersonID:   person.ID,
		PersonName: person.Name,
		AreaID:     area.ID,
		Zone:       zone,
	}
	rec.SetAncestor(TierChair, area.ChairID, area.ChairName)

	parentTier := req.Tier.Parent()
	if parentTier == TierChair {
		return rec, nil
	}

	parents, err := a.src.ListRecords(ctx, parentTier, RecordFilter{Area: AreaByID(area.ID), PersonID: req.ParentID})
	if err != nil {
		return rec, &FetchError{Op: "records " + string(parentTier), Err: err}
	}
	var parent *TierRecord
	for i := range parents {
		if parents[i].PersonID == req.ParentID {
			parent = &parents[i]
			break
		}
	}
	if parent == nil {
		return rec, fmt.Errorf("parent %s is not a %s in area %s: %w", req.ParentID, parentTier, area.Name, ErrNotFound)
	}

	for t := parentTier.Parent(); t != TierNone; t = t.Parent() {
		if id, name := parent.Ancestor(t); id != "" {
			rec.SetAncestor(t, id, name)
		}
	}
	rec.SetAncestor(parentTier, parent.PersonID, parent.PersonName)
	return rec, nil
}

func (a *Assigner) write(ctx context.Context, person Person, area Area, req AssignRequest, rec *TierRecord) (*AssignResult, error) {
	var done []AssignStep
	partial := func(step AssignStep, err error) error {
		perr := &PartialAssignmentError{
			PersonID:  person.ID,
			Target:    req.Tier,
			Completed: append([]AssignStep(nil), done...),
			Failed:    step,
			Err:       err,
		}
		a.logger.Error("assignment partially applied",
			zap.String("person_id", person.ID),
			zap.String("tier", string(req.Tier)),
			zap.String("failed_step", string(step)),
			zap.Int("completed_steps", len(done)),
			zap.Error(err))
		return perr
	}

	tier := req.Tier
	patch := PersonPatch{Tier: &tier}
	if req.Zone != "" {
		patch.Zone = &req.Zone
	}
	updated, err := a.src.UpdatePerson(ctx, person.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("update person %s: %w", person.ID, err)
	}
	done = append(done, StepUpdatePerson)

	result := &AssignResult{Person: updated, Area: area}

	if rec != nil {
		created, err := a.src.CreateRecord(ctx, *rec)
		if err != nil {
			return nil, partial(StepCreateRecord, err)
		}
		result.Record = &created
		done = append(done, StepCreateRecord)
	}

	switch req.Tier {
	case TierChair:
		id, name := person.ID, person.Name
		area, err = a.src.UpdateArea(ctx, area.ID, AreaPatch{ChairID: &id, ChairName: &name})
		if err != nil {
			return nil, partial(StepIndexArea, err)
		}
		result.Area = area
	case TierSubChair:
		area, err = a.src.AppendAreaIndex(ctx, area.ID, AreaIndexSubChairs, person.ID)
		if err != nil {
			return nil, partial(StepIndexArea, err)
		}
		result.Area = area
	}

	a.logger.Info("tier assigned",
		zap.String("person_id", person.ID),
		zap.String("person_name", person.Name),
		zap.String("tier", string(req.Tier)),
		zap.String("area_id", area.ID))

	a.refresh(ctx)
	return result, nil
}

// TagFunctionary attaches a functionary tag to a person and indexes it on
// the area. Tagging twice is a no-op, except that a person tagged by an
// earlier partial write gets the missing area index entry.
func (a *Assigner) TagFunctionary(ctx context.Context, personID, tag string) (Person, error) {
	f, err := ParseFunctionary(tag)
	if err != nil {
		return Person{}, err
	}
	person, err := a.src.GetPerson(ctx, personID)
	if err != nil {
		return Person{}, &FetchError{Op: "person " + personID, Err: err}
	}

	s := string(f)
	updated := person
	if person.HasFunctionary(f) {
		area, err := a.src.GetArea(ctx, AreaByID(person.AreaID))
		if err != nil {
			return Person{}, &FetchError{Op: "area " + person.AreaID, Err: err}
		}
		if slices.Contains(area.Index(s), personID) {
			return person, nil
		}
		a.logger.Warn("functionary missing from area index",
			zap.String("person_id", personID),
			zap.String("tag", s))
	} else {
		updated, err = a.src.UpdatePerson(ctx, personID, PersonPatch{AddFunctionary: &s})
		if err != nil {
			return Person{}, fmt.Errorf("update person %s: %w", personID, err)
		}
	}
	if _, err := a.src.AppendAreaIndex(ctx, person.AreaID, s, personID); err != nil {
		a.logger.Error("functionary index append failed",
			zap.String("person_id", personID),
			zap.String("tag", s),
			zap.Error(err))
		return updated, fmt.Errorf("tag %s on %s saved but area index not updated: %w",
			s, personID, errors.Join(ErrPartialAssignment, err))
	}

	a.logger.Info("functionary tagged", zap.String("person_id", personID), zap.String("tag", s))
	a.refresh(ctx)
	return updated, nil
}

func (a *Assigner) refresh(ctx context.Context) {
	if a.dir == nil {
		return
	}
	if err := a.dir.Refresh(ctx); err != nil {
		a.logger.Warn("directory refresh after write failed", zap.Error(err))
	}
}
