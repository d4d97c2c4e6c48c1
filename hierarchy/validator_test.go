package hierarchy_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/hierarchy-engine/hierarchy"
)

func assertCode(t *testing.T, err error, sentinel error, code hierarchy.AssignmentCode) *hierarchy.AssignmentError {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	var ae *hierarchy.AssignmentError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, code, ae.Code)
	return ae
}

func TestCanAssign_AcceptsWhenAllRulesPass(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana", Name: "Ana Cruz"}

	cases := []struct {
		tier hierarchy.Tier
		ctx  hierarchy.AssignContext
	}{
		{hierarchy.TierChair, hierarchy.AssignContext{}},
		{hierarchy.TierSubChair, hierarchy.AssignContext{ChairID: "p-leo"}},
		{hierarchy.TierSectionChief, hierarchy.AssignContext{ChairID: "p-leo", ParentID: "p-s"}},
		{hierarchy.TierCellLeader, hierarchy.AssignContext{ChairID: "p-leo", ParentID: "p-g"}},
		{hierarchy.TierMember, hierarchy.AssignContext{ChairID: "p-leo", ParentID: "p-l"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			assert.NoError(t, hierarchy.CanAssign(ana, tc.tier, tc.ctx))
		})
	}
}

func TestCanAssign_NoChairSet(t *testing.T) {
	// Riverside has no chair: Ana cannot become sub_chair
	ana := hierarchy.Person{ID: "p-ana", Name: "Ana Cruz"}

	err := hierarchy.CanAssign(ana, hierarchy.TierSubChair, hierarchy.AssignContext{})

	ae := assertCode(t, err, hierarchy.ErrNoChairSet, hierarchy.CodeNoChairSet)
	assert.Contains(t, ae.Error(), "no chair")
}

func TestCanAssign_NoParentSelected(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana", Name: "Ana Cruz"}

	for _, tier := range []hierarchy.Tier{hierarchy.TierSectionChief, hierarchy.TierCellLeader, hierarchy.TierMember} {
		t.Run(string(tier), func(t *testing.T) {
			err := hierarchy.CanAssign(ana, tier, hierarchy.AssignContext{ChairID: "p-leo"})
			ae := assertCode(t, err, hierarchy.ErrNoParentSelected, hierarchy.CodeNoParentSelected)
			assert.Contains(t, ae.Error(), strings.ToLower(tier.Parent().Label()))
		})
	}
}

func TestCanAssign_SubChairNeedsNoParent(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana"}

	assert.NoError(t, hierarchy.CanAssign(ana, hierarchy.TierSubChair, hierarchy.AssignContext{ChairID: "p-leo"}))
}

func TestCanAssign_RoleConflict(t *testing.T) {
	// Ana is already a sub_chair: assigning her as section_chief names that tier
	ana := hierarchy.Person{ID: "p-ana", Name: "Ana Cruz", Tier: hierarchy.TierSubChair}

	err := hierarchy.CanAssign(ana, hierarchy.TierSectionChief, hierarchy.AssignContext{ChairID: "p-leo", ParentID: "p-x"})

	ae := assertCode(t, err, hierarchy.ErrRoleConflict, hierarchy.CodeRoleConflict)
	assert.Equal(t, hierarchy.TierSubChair, ae.Current)
	assert.Contains(t, ae.Error(), "Sub-chair")
}

func TestCanAssign_RoleConflictForEveryHeldTier(t *testing.T) {
	for _, held := range hierarchy.TierOrder {
		p := hierarchy.Person{ID: "p", Tier: held}
		err := hierarchy.CanAssign(p, hierarchy.TierMember, hierarchy.AssignContext{ChairID: "c", ParentID: "l"})
		ae := assertCode(t, err, hierarchy.ErrRoleConflict, hierarchy.CodeRoleConflict)
		assert.Equal(t, held, ae.Current)
	}
}

func TestCanAssign_AlreadyListedSubChair(t *testing.T) {
	// Tier field unset but the area index still lists her
	ana := hierarchy.Person{ID: "p-ana"}

	err := hierarchy.CanAssign(ana, hierarchy.TierSubChair, hierarchy.AssignContext{
		ChairID:     "p-leo",
		SubChairIDs: []string{"p-ben", "p-ana"},
	})

	assertCode(t, err, hierarchy.ErrAlreadyAssigned, hierarchy.CodeAlreadyAssigned)
}

func TestCanAssign_IndexOnlyCheckedForSubChair(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana"}

	err := hierarchy.CanAssign(ana, hierarchy.TierSectionChief, hierarchy.AssignContext{
		ChairID:     "p-leo",
		ParentID:    "p-ben",
		SubChairIDs: []string{"p-ana"},
	})

	assert.NoError(t, err)
}

func TestCanAssign_RuleOrder(t *testing.T) {
	// Every rule violated at once: the first rule wins
	ana := hierarchy.Person{ID: "p-ana", Tier: hierarchy.TierMember}

	err := hierarchy.CanAssign(ana, hierarchy.TierSectionChief, hierarchy.AssignContext{SubChairIDs: []string{"p-ana"}})
	assertCode(t, err, hierarchy.ErrNoChairSet, hierarchy.CodeNoChairSet)

	err = hierarchy.CanAssign(ana, hierarchy.TierSectionChief, hierarchy.AssignContext{ChairID: "c"})
	assertCode(t, err, hierarchy.ErrNoParentSelected, hierarchy.CodeNoParentSelected)

	err = hierarchy.CanAssign(ana, hierarchy.TierSubChair, hierarchy.AssignContext{ChairID: "c", SubChairIDs: []string{"p-ana"}})
	assertCode(t, err, hierarchy.ErrRoleConflict, hierarchy.CodeRoleConflict)
}

func TestCanAssign_ChairTaken(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana"}

	err := hierarchy.CanAssign(ana, hierarchy.TierChair, hierarchy.AssignContext{ChairID: "p-leo"})

	assertCode(t, err, hierarchy.ErrChairTaken, hierarchy.CodeChairTaken)
}

func TestCanAssign_InvalidTier(t *testing.T) {
	ana := hierarchy.Person{ID: "p-ana"}

	err := hierarchy.CanAssign(ana, hierarchy.Tier("captain"), hierarchy.AssignContext{ChairID: "p-leo"})
	assertCode(t, err, hierarchy.ErrInvalidTier, hierarchy.CodeInvalidTier)

	err = hierarchy.CanAssign(ana, hierarchy.TierNone, hierarchy.AssignContext{ChairID: "p-leo"})
	assertCode(t, err, hierarchy.ErrInvalidTier, hierarchy.CodeInvalidTier)
}

func TestParseTier(t *testing.T) {
	tier, err := hierarchy.ParseTier(" Section_Chief ")
	require.NoError(t, err)
	assert.Equal(t, hierarchy.TierSectionChief, tier)

	tier, err = hierarchy.ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, hierarchy.TierNone, tier)

	_, err = hierarchy.ParseTier("captain")
	assert.ErrorIs(t, err, hierarchy.ErrInvalidTier)
}

func TestTierTable(t *testing.T) {
	assert.Equal(t, hierarchy.TierSubChair, hierarchy.TierChair.Child())
	assert.Equal(t, hierarchy.TierNone, hierarchy.TierMember.Child())
	assert.Equal(t, hierarchy.TierCellLeader, hierarchy.TierMember.Parent())

	collections := map[string]bool{}
	for _, tier := range hierarchy.RecordTiers {
		spec, ok := tier.Spec()
		require.True(t, ok)
		assert.True(t, spec.HasRecords())
		assert.False(t, collections[spec.Collection], "collection %s reused", spec.Collection)
		collections[spec.Collection] = true
	}
}
