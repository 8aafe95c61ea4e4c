// Package auth implements identity resolution: local database accounts with
// Argon2id password hashing and sign-in via an external OpenID Connect
// provider. Authorization decisions live in package authz; this package only
// answers "who is asking".
package auth
