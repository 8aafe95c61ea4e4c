// Package authz implements the building-scoped authorization core: the
// closed permission catalog with its role templates, the persisted grant
// store with optional expiry, the single HasPermission query every
// privileged surface goes through, and the append-only permission audit log.
//
// The decision algorithm is centralized in Service.HasPermission: a global
// super-user passes every check, the BUILDING_ADMIN structural role implies
// every fine-grained permission within its building, and otherwise an
// active (non-expired) explicit grant is required. All grant and revoke
// mutations write their audit entries inside the same database transaction,
// so no permission change can happen silently.
package authz
