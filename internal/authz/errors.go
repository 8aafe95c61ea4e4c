package authz

import "errors"

var (
	// ErrUnknownPermission is returned when a permission string is not part of
	// the closed catalog. This is a programmer or caller error, never a normal
	// user-facing condition: the catalog is fixed at build time.
	ErrUnknownPermission = errors.New("unknown permission")

	// ErrUnknownTemplate is returned when a role template name is not part of
	// the closed catalog.
	ErrUnknownTemplate = errors.New("unknown role template")

	// ErrUnknownRole is returned when a structural role name is invalid.
	ErrUnknownRole = errors.New("unknown building role")

	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)
