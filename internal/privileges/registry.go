package privileges

import (
	"fmt"
	"regexp"
	"slices"
)

// Label is the human readable name of a privilege column.
type Label struct {
	Name string `json:"name"`
}

// Route maps an anchored path pattern to a privilege.
type Route struct {
	Pattern   *regexp.Regexp
	Privilege string
}

// Domain is the static description of a privilege domain. It is built once at
// startup and never modified afterwards.
type Domain struct {
	Name            string
	Labels          []Label
	UserPrivileges  []string
	GroupPrivileges []string

	// Landing is returned for the empty path.
	Landing string
	// Routes is consulted before Patterns.
	Routes map[string]string
	// Patterns are tried in order, the first match wins.
	Patterns []Route
	// Sockets maps socket method names to privileges.
	Sockets map[string]string
}

// Validate checks the lock-step invariant between user and group privileges.
func (d *Domain) Validate() error {
	if len(d.Labels) != len(d.UserPrivileges) {
		return fmt.Errorf("%s: %w", d.Name, ErrLabelCount)
	}

	seen := make(map[string]struct{}, len(d.UserPrivileges))
	for _, p := range d.UserPrivileges {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%s: %q: %w", d.Name, p, ErrDuplicatePrivilege)
		}
		seen[p] = struct{}{}
	}

	if !slices.Equal(d.GroupPrivileges, GroupPrivileges(d.UserPrivileges)) {
		return fmt.Errorf("%s: %w", d.Name, ErrLockStep)
	}

	for path, p := range d.Routes {
		if !d.Has(p) {
			return fmt.Errorf("%s: route %q: %q: %w", d.Name, path, p, ErrUnknownPrivilege)
		}
	}
	for _, r := range d.Patterns {
		if !d.Has(r.Privilege) {
			return fmt.Errorf("%s: route %q: %q: %w", d.Name, r.Pattern, r.Privilege, ErrUnknownPrivilege)
		}
	}
	for method, p := range d.Sockets {
		if !d.Has(p) {
			return fmt.Errorf("%s: socket %q: %q: %w", d.Name, method, p, ErrUnknownPrivilege)
		}
	}

	return nil
}

// Has reports whether privilege is a user privilege of the domain.
func (d *Domain) Has(privilege string) bool {
	return slices.Contains(d.UserPrivileges, privilege)
}

// Known reports whether privilege is a user or group privilege of the domain.
func (d *Domain) Known(privilege string) bool {
	return d.Has(privilege) || slices.Contains(d.GroupPrivileges, privilege)
}

// Resolve returns the privilege guarding path.
func (d *Domain) Resolve(path string) (string, bool) {
	if p, ok := d.Routes[path]; ok {
		return p, true
	}
	if path == "" {
		return d.Landing, true
	}

	for _, r := range d.Patterns {
		if r.Pattern.MatchString(path) {
			return r.Privilege, true
		}
	}

	return "", false
}

// ResolveSocket returns the privilege guarding a socket method.
func (d *Domain) ResolveSocket(method string) (string, bool) {
	p, ok := d.Sockets[method]

	return p, ok
}

// SocketMethods returns the mapped socket methods in sorted order.
func (d *Domain) SocketMethods() []string {
	out := make([]string, 0, len(d.Sockets))
	for m := range d.Sockets {
		out = append(out, m)
	}
	slices.Sort(out)

	return out
}
