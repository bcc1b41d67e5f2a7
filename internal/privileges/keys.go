package privileges

import (
	"strconv"
	"strings"
)

// GroupPrefix namespaces a group privilege.
const GroupPrefix = "groups:"

// Key returns the access-control group holding privilege on subject.
func Key(subject int64, privilege string) string {
	return "cid:" + strconv.FormatInt(subject, 10) + ":privileges:" + privilege
}

// GroupKey returns the access-control group whose members are the groups
// holding privilege on subject.
func GroupKey(subject int64, privilege string) string {
	return Key(subject, GroupPrefix+privilege)
}

// IsGroupPrivilege reports whether privilege carries the group prefix.
func IsGroupPrivilege(privilege string) bool {
	return strings.HasPrefix(privilege, GroupPrefix)
}

// GroupPrivileges derives the group list from a user list.
func GroupPrivileges(users []string) []string {
	out := make([]string, len(users))
	for i, p := range users {
		out[i] = GroupPrefix + p
	}

	return out
}
