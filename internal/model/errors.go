package model

import "errors"

// Common errors used across the application
var (
	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrAuthorityTarget     = errors.New("the session authority cannot be targeted")

	// Session errors
	ErrNoSession         = errors.New("no session")
	ErrSessionExists     = errors.New("session already exists")
	ErrAlreadyInSession  = errors.New("participant is already in session")
	ErrNotInSession      = errors.New("not in a session")
	ErrNotAuthority      = errors.New("not the session authority")
	ErrMatchInProgress   = errors.New("match is in progress")
	ErrNoMatchInProgress = errors.New("no match in progress")

	// Ban errors
	ErrAlreadyBanned = errors.New("identity is already banned")
	ErrNotBanned     = errors.New("identity is not banned")

	// Persistence errors
	ErrBanListNotFound  = errors.New("ban list not found")
	ErrSettingsNotFound = errors.New("settings not found")

	// Engine errors
	ErrEngineStopped = errors.New("engine stopped")
)
