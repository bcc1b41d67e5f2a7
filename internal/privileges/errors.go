package privileges

import "errors"

var (
	// ErrForbidden is returned when the caller lacks the required privilege.
	ErrForbidden = errors.New("[[error:no-privileges]]")
	// ErrNoPrivileges is returned when a grant names no privilege.
	ErrNoPrivileges = errors.New("privilege list is empty")
	// ErrNoGroups is returned when a grant names no group.
	ErrNoGroups = errors.New("group list is empty")
	// ErrUnknownPrivilege is returned when a grant names a privilege outside the domain.
	ErrUnknownPrivilege = errors.New("unknown privilege")
	// ErrInvalidArguments is returned when privileges and subjects are both lists.
	ErrInvalidArguments = errors.New("[[error:invalid-data]]")
	// ErrLockStep is returned by Domain.Validate when the group list diverges from the user list.
	ErrLockStep = errors.New("group privileges are out of step with user privileges")
	// ErrDuplicatePrivilege is returned by Domain.Validate for repeated privileges.
	ErrDuplicatePrivilege = errors.New("duplicate privilege")
	// ErrLabelCount is returned by Domain.Validate when labels and privileges differ in length.
	ErrLabelCount = errors.New("label count does not match privilege count")
)
