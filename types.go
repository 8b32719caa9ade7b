package goSession

import (
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// Identity is the authenticated caller attached to a request.
//
// Rotated reports that this request renewed the session; the new cookies
// have already been written to the response.
type Identity struct {
	SubjectID   string
	Email       string
	DisplayName string
	Rotated     bool
}

// LoginResult is returned by [Engine.Login]. The three session cookies have
// already been written; CSRFToken is repeated so single-page clients can
// keep it without reading document.cookie.
type LoginResult struct {
	Identity  Identity
	CSRFToken string
}

// RouteMode is the per-route override accepted by [Engine.AuthenticateMode].
// It reuses the ValidationMode constants, including ModeInherit.
type RouteMode = ValidationMode

// Store is the session store the engine needs. Every implementation in the
// session package satisfies it.
type Store = session.Store

// UserRecord re-exports [session.UserRecord] for callers seeding stores.
type UserRecord = session.UserRecord

func identityFrom(id jwt.Identity, rotated bool) *Identity {
	return &Identity{
		SubjectID:   id.SubjectID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Rotated:     rotated,
	}
}
