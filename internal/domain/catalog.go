package domain

import "context"

// Catalog resolves games to their recent clips
type Catalog interface {
	// Authenticate obtains an access token. Failure is an auth error.
	Authenticate(ctx context.Context) error

	// TopClips returns up to limit recent clips for the named game
	TopClips(ctx context.Context, game string, limit int) ([]*Clip, error)
}
