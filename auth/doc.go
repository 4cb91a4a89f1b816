// Package auth is the access gate in front of the student data routes.
//
// Users register with a first and last name and receive a generated
// identifier. Every gated request presents that identifier; unknown ids are
// rejected with ErrAccessDenied. There are no sessions: Login and Logout only
// check that the id exists.
package auth
