package model

import "strings"

// StaticActor grants a fixed set of permissions on every record. It backs the
// CLI, fixtures and tests; applications normally adapt their own user type.
type StaticActor struct {
	Username    string
	Permissions []string
}

// Name returns the username.
func (a StaticActor) Name() string {
	return a.Username
}

// HasPermission reports whether name is listed. The record is ignored.
func (a StaticActor) HasPermission(name string, _ Record) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, perm := range a.Permissions {
		if strings.TrimSpace(perm) == name {
			return true
		}
	}
	return false
}

// Guest is an actor without permissions.
var Guest Actor = StaticActor{Username: "guest"}
