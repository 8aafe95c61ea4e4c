// Package auth provides the session-based authentication middleware for the
// web service. It resolves the current user from the session cookie and
// redirects unauthenticated page requests to the sign-in page; API requests
// are answered with plain status codes further down the chain.
package auth
