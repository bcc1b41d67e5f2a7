// Package admin guards the admin API. The path below the admin prefix is
// resolved to an admin privilege; paths without a mapping are reserved to
// super-users.
package admin
