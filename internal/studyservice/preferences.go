package studyservice

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/kvstore"
)

// Preferences are UI settings kept next to the collections.
type Preferences struct {
	Theme            string `json:"theme"`
	Language         string `json:"language"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
}

// PreferencesPatch updates the fields that are set.
type PreferencesPatch struct {
	Theme            *string `json:"theme"`
	Language         *string `json:"language"`
	SidebarCollapsed *bool   `json:"sidebarCollapsed"`
}

// Validate checks the patch values.
func (p PreferencesPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Theme, validation.NilOrNotEmpty, validation.In("light", "dark")),
		validation.Field(&p.Language, validation.NilOrNotEmpty, validation.In("vi", "en")),
	)
}

// DefaultPreferences is used for keys never written.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", Language: "vi"}
}

// Preferences reads the stored preferences over the defaults.
func (s *Service) Preferences(ctx context.Context) (Preferences, error) {
	p := DefaultPreferences()
	for key, dst := range map[string]any{
		kvstore.KeyTheme:            &p.Theme,
		kvstore.KeyLanguage:         &p.Language,
		kvstore.KeySidebarCollapsed: &p.SidebarCollapsed,
	} {
		if _, err := s.store.Get(ctx, key, dst); err != nil {
			return DefaultPreferences(), fmt.Errorf("preferences: %v: %w", err, apperr.ErrStorage)
		}
	}
	return p, nil
}

// SetPreferences applies patch and returns the result.
func (s *Service) SetPreferences(ctx context.Context, patch PreferencesPatch) (Preferences, error) {
	if err := patch.Validate(); err != nil {
		return Preferences{}, fmt.Errorf("preferences: %v: %w", err, apperr.ErrValidation)
	}
	values := make(map[string]any, 3)
	if patch.Theme != nil {
		values[kvstore.KeyTheme] = *patch.Theme
	}
	if patch.Language != nil {
		values[kvstore.KeyLanguage] = *patch.Language
	}
	if patch.SidebarCollapsed != nil {
		values[kvstore.KeySidebarCollapsed] = *patch.SidebarCollapsed
	}
	if len(values) > 0 {
		if err := kvstore.SetMany(ctx, s.store, values); err != nil {
			return Preferences{}, fmt.Errorf("preferences: %v: %w", err, apperr.ErrStorage)
		}
	}
	return s.Preferences(ctx)
}
