package repository

import (
	"context"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrNotFound = goerr.New("not found")

// ResultStore holds the results of the current session, newest first
type ResultStore interface {
	// Append inserts a result at the head of the list
	Append(ctx context.Context, result *model.Result) error

	// Get retrieves a result by ID
	Get(ctx context.Context, id model.ResultID) (*model.Result, error)

	// List returns a snapshot of all results, newest first
	List(ctx context.Context) ([]*model.Result, error)

	// Clear removes every result at once
	Clear(ctx context.Context) error
}

// PreferenceStore persists display preferences
type PreferenceStore interface {
	// GetPreference returns nil without error when nothing has been stored yet
	GetPreference(ctx context.Context) (*model.Preference, error)

	PutPreference(ctx context.Context, pref *model.Preference) error
}
