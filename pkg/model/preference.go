package model

import "github.com/m-mizutani/goerr/v2"

var ErrInvalidTheme = goerr.New("invalid theme")

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	DefaultTheme = ThemeDark
)

func (t Theme) Validate() error {
	switch t {
	case ThemeLight, ThemeDark:
		return nil
	default:
		return goerr.Wrap(ErrInvalidTheme, "unknown theme", goerr.V("theme", t))
	}
}

// Toggle returns the opposite theme
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Preference holds display settings persisted across sessions
type Preference struct {
	Theme Theme `firestore:"theme" json:"theme"`
}
