// README: Per-device client preferences (language, theme, onboarding, pending service selection).
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"semas/internal/kvstore"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var (
	ErrInvalidLanguage = errors.New("unsupported language")
	ErrInvalidTheme    = errors.New("unsupported theme")
	ErrNoDevice        = errors.New("missing device id")
)

type Prefs struct {
	Language       Language `json:"language"`
	Theme          Theme    `json:"theme"`
	OnboardingSeen bool     `json:"onboardingSeen"`
}

func Defaults() Prefs {
	return Prefs{Language: LanguageEnglish, Theme: ThemeSystem}
}

// Direction is the text direction the client should render the language in.
func (l Language) Direction() string {
	if l == LanguageArabic {
		return "rtl"
	}
	return "ltr"
}

// Update holds the fields to change; nil means unchanged.
type Update struct {
	Language       *Language
	Theme          *Theme
	OnboardingSeen *bool
}

type Service struct {
	kv kvstore.Store
}

func NewService(kv kvstore.Store) *Service {
	return &Service{kv: kv}
}

func prefsKey(device string) string   { return "prefs:" + device }
func serviceKey(device string) string { return "prefs:" + device + ":selected-service" }

// Get returns the stored preferences, falling back to defaults field by field.
func (s *Service) Get(ctx context.Context, device string) (Prefs, error) {
	if device == "" {
		return Prefs{}, ErrNoDevice
	}
	p := Defaults()
	raw, ok, err := s.kv.Get(ctx, prefsKey(device))
	if err != nil {
		return Prefs{}, fmt.Errorf("load prefs: %w", err)
	}
	if !ok {
		return p, nil
	}
	var stored Prefs
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return p, nil
	}
	if validLanguage(stored.Language) {
		p.Language = stored.Language
	}
	if validTheme(stored.Theme) {
		p.Theme = stored.Theme
	}
	p.OnboardingSeen = stored.OnboardingSeen
	return p, nil
}

func (s *Service) Update(ctx context.Context, device string, u Update) (Prefs, error) {
	p, err := s.Get(ctx, device)
	if err != nil {
		return Prefs{}, err
	}
	if u.Language != nil {
		if !validLanguage(*u.Language) {
			return Prefs{}, ErrInvalidLanguage
		}
		p.Language = *u.Language
	}
	if u.Theme != nil {
		if !validTheme(*u.Theme) {
			return Prefs{}, ErrInvalidTheme
		}
		p.Theme = *u.Theme
	}
	if u.OnboardingSeen != nil {
		p.OnboardingSeen = *u.OnboardingSeen
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return Prefs{}, err
	}
	if err := s.kv.Set(ctx, prefsKey(device), string(raw), 0); err != nil {
		return Prefs{}, fmt.Errorf("save prefs: %w", err)
	}
	return p, nil
}

// SetSelectedService remembers the catalog selection for the next booking.
func (s *Service) SetSelectedService(ctx context.Context, device, serviceType string) error {
	if device == "" {
		return ErrNoDevice
	}
	serviceType = strings.TrimSpace(serviceType)
	if serviceType == "" {
		return s.kv.Delete(ctx, serviceKey(device))
	}
	return s.kv.Set(ctx, serviceKey(device), serviceType, 0)
}

// SelectedService returns the pending selection without clearing it.
func (s *Service) SelectedService(ctx context.Context, device string) (string, bool, error) {
	if device == "" {
		return "", false, ErrNoDevice
	}
	return s.kv.Get(ctx, serviceKey(device))
}

func (s *Service) ClearSelectedService(ctx context.Context, device string) error {
	if device == "" {
		return ErrNoDevice
	}
	return s.kv.Delete(ctx, serviceKey(device))
}

// ConsumeSelectedService returns the pending selection and clears it.
func (s *Service) ConsumeSelectedService(ctx context.Context, device string) (string, bool, error) {
	if device == "" {
		return "", false, ErrNoDevice
	}
	return s.kv.Take(ctx, serviceKey(device))
}

func validLanguage(l Language) bool {
	return l == LanguageEnglish || l == LanguageArabic
}

func validTheme(t Theme) bool {
	return t == ThemeLight || t == ThemeDark || t == ThemeSystem
}
