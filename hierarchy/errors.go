/*
errors.go - Error types for the hierarchy engine

ERROR CATEGORIES:
  1. Fetch errors      - Transport failures on reads (FetchError)
  2. Assignment errors - Rule violations caught before any write (AssignmentError)
  3. Partial writes    - A write sequence that stopped half-way (PartialAssignmentError)
  4. Lookup errors     - Missing people, areas, records (ErrNotFound)

Resolution failures are NOT errors at the API boundary: the resolver turns
them into placeholder entries. See resolver.go.

USAGE:
  if errors.Is(err, hierarchy.ErrRoleConflict) {
      var ae *hierarchy.AssignmentError
      errors.As(err, &ae)
      fmt.Println(ae.Current) // the tier already held
  }
*/
package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrFetch marks a transport failure on a read.
	ErrFetch = errors.New("fetch failed")

	// ErrNotFound is returned when a person, area or record does not exist.
	ErrNotFound = errors.New("not found")

	ErrNoChairSet       = errors.New("no chair set for area")
	ErrNoParentSelected = errors.New("no parent selected")
	ErrRoleConflict     = errors.New("person already holds a tier")
	ErrAlreadyAssigned  = errors.New("person already listed as sub-chair in area")
	ErrChairTaken       = errors.New("area already has a chair")

	ErrInvalidTier        = errors.New("invalid tier")
	ErrInvalidFunctionary = errors.New("invalid functionary tag")

	// ErrPartialAssignment marks a write sequence that failed after its first write.
	ErrPartialAssignment = errors.New("assignment partially applied")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FetchError wraps a transport failure on a read.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// AssignmentCode identifies which assignment rule failed.
type AssignmentCode string

const (
	CodeNoChairSet       AssignmentCode = "no_chair_set"
	CodeNoParentSelected AssignmentCode = "no_parent_selected"
	CodeRoleConflict     AssignmentCode = "role_conflict"
	CodeAlreadyAssigned  AssignmentCode = "already_assigned"
	CodeChairTaken       AssignmentCode = "chair_taken"
	CodeInvalidTier      AssignmentCode = "invalid_tier"
)

var assignmentSentinels = map[AssignmentCode]error{
	CodeNoChairSet:       ErrNoChairSet,
	CodeNoParentSelected: ErrNoParentSelected,
	CodeRoleConflict:     ErrRoleConflict,
	CodeAlreadyAssigned:  ErrAlreadyAssigned,
	CodeChairTaken:       ErrChairTaken,
	CodeInvalidTier:      ErrInvalidTier,
}

// AssignmentError is a rule violation found before any write happened.
type AssignmentError struct {
	Code       AssignmentCode
	PersonID   string
	PersonName string
	Target     Tier
	// Current is the tier already held, for CodeRoleConflict.
	Current Tier
}

func (e *AssignmentError) Error() string {
	who := e.PersonName
	if who == "" {
		who = e.PersonID
	}
	switch e.Code {
	case CodeNoChairSet:
		return fmt.Sprintf("cannot assign %s as %s: the area has no chair yet", who, e.Target.Label())
	case CodeNoParentSelected:
		return fmt.Sprintf("cannot assign %s as %s: select a %s first", who, e.Target.Label(), strings.ToLower(e.Target.Parent().Label()))
	case CodeRoleConflict:
		return fmt.Sprintf("cannot assign %s as %s: already assigned as %s", who, e.Target.Label(), e.Current.Label())
	case CodeAlreadyAssigned:
		return fmt.Sprintf("cannot assign %s as %s: already listed as a sub-chair in this area", who, e.Target.Label())
	case CodeChairTaken:
		return fmt.Sprintf("cannot assign %s as chair: the area already has a chair", who)
	case CodeInvalidTier:
		return fmt.Sprintf("cannot assign %s: %q is not a valid tier", who, e.Target)
	}
	return fmt.Sprintf("cannot assign %s as %s", who, e.Target)
}

func (e *AssignmentError) Unwrap() error { return assignmentSentinels[e.Code] }

// AssignStep names one write of the assignment sequence.
type AssignStep string

const (
	StepUpdatePerson AssignStep = "update_person"
	StepCreateRecord AssignStep = "create_record"
	StepIndexArea    AssignStep = "index_area"
)

// PartialAssignmentError reports a write sequence that stopped after at
// least one write landed. Nothing is rolled back: the person's tier may be
// set with no matching record.
type PartialAssignmentError struct {
	PersonID  string
	Target    Tier
	Completed []AssignStep
	Failed    AssignStep
	Err       error
}

func (e *PartialAssignmentError) Error() string {
	done := make([]string, len(e.Completed))
	for i, s := range e.Completed {
		done[i] = string(s)
	}
	return fmt.Sprintf("assignment of %s as %s failed at %s after [%s]; data may be inconsistent: %v",
		e.PersonID, e.Target, e.Failed, strings.Join(done, ", "), e.Err)
}

func (e *PartialAssignmentError) Unwrap() []error {
	return []error{ErrPartialAssignment, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to an operator mistake
// rather than infrastructure.
func IsClientError(err error) bool {
	var ae *AssignmentError
	return errors.As(err, &ae) ||
		errors.Is(err, ErrInvalidTier) ||
		errors.Is(err, ErrInvalidFunctionary)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
