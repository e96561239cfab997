package preference

import (
	"context"
	"sync"

	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// UseCase serves display preferences. They are read from the store once at
// startup and written through on every change.
type UseCase struct {
	store repository.PreferenceStore

	mu    sync.RWMutex
	theme model.Theme
}

// Load reads the stored preference, falling back to model.DefaultTheme when
// nothing (or something unrecognized) is stored.
func Load(ctx context.Context, store repository.PreferenceStore) (*UseCase, error) {
	pref, err := store.GetPreference(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load preference")
	}

	theme := model.DefaultTheme
	if pref != nil {
		if err := pref.Theme.Validate(); err != nil {
			logging.From(ctx).Warn("ignore stored theme", "error", err)
		} else {
			theme = pref.Theme
		}
	}

	return &UseCase{
		store: store,
		theme: theme,
	}, nil
}

func (u *UseCase) Theme() model.Theme {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.theme
}

func (u *UseCase) SetTheme(ctx context.Context, theme model.Theme) error {
	if err := theme.Validate(); err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.store.PutPreference(ctx, &model.Preference{Theme: theme}); err != nil {
		return goerr.Wrap(err, "failed to save preference", goerr.V("theme", theme))
	}
	u.theme = theme
	return nil
}

// ToggleTheme switches between light and dark and returns the new theme
func (u *UseCase) ToggleTheme(ctx context.Context) (model.Theme, error) {
	next := u.Theme().Toggle()
	if err := u.SetTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}
