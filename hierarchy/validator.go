package hierarchy

// AssignContext is the operator's current selection when assigning a tier.
type AssignContext struct {
	// ChairID is the area's chair. Required for every tier below chair.
	ChairID string
	// ParentID is the selected parent person for tiers below sub_chair.
	ParentID string
	// SubChairIDs is the area's sub_chair_ids index.
	SubChairIDs []string
}

// CanAssign checks whether person may take target under ctx.
//
// Rules run in order and the first failure is returned:
//  1. a chair must be set (for chair itself: must NOT be set)
//  2. tiers below sub_chair need a selected parent
//  3. the person must not already hold a tier
//  4. a sub_chair must not already be listed in the area index
func CanAssign(person Person, target Tier, ctx AssignContext) error {
	fail := func(code AssignmentCode) error {
		return &AssignmentError{
			Code:       code,
			PersonID:   person.ID,
			PersonName: person.Name,
			Target:     target,
			Current:    person.Tier,
		}
	}

	if !target.Restricted() {
		return fail(CodeInvalidTier)
	}

	if target == TierChair {
		if ctx.ChairID != "" {
			return fail(CodeChairTaken)
		}
	} else if ctx.ChairID == "" {
		return fail(CodeNoChairSet)
	}

	if target.Rank() > TierSubChair.Rank() && ctx.ParentID == "" {
		return fail(CodeNoParentSelected)
	}

	if person.Tier.Restricted() {
		return fail(CodeRoleConflict)
	}

	if target == TierSubChair {
		for _, id := range ctx.SubChairIDs {
			if id == person.ID {
				return fail(CodeAlreadyAssigned)
			}
		}
	}

	return nil
}
