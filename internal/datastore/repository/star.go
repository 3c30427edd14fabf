package repository

import "context"

// StarRepository provides access to the stars table.
type StarRepository interface {
	// Exists reports whether the user has starred the report.
	Exists(ctx context.Context, userID, reportID uint) (bool, error)

	// Ensure creates the star unless it already exists.
	Ensure(ctx context.Context, userID, reportID uint) error

	// Remove deletes the star if present and reports whether a row was removed.
	Remove(ctx context.Context, userID, reportID uint) (bool, error)
}
