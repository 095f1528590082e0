package core

import "errors"

// Version is written into playlist backups so restores can detect a tool
// version mismatch.
const Version = "0.4.0"

var (
	// ErrPlaylistExists is returned when creating a playlist whose name is
	// already taken and overwriting was not allowed
	ErrPlaylistExists = errors.New("playlist already exists")
	// ErrPlaylistNotFound is returned when a named playlist is required but missing
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrNotAuthenticated is returned by transports used before authentication
	ErrNotAuthenticated = errors.New("client not authenticated")
)
