// Package preferences holds a shopper's UI preferences, persisted like the cart.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sabowaryan/sabowaryantech/internal/persist"
	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
	"github.com/sabowaryan/sabowaryantech/internal/validation"
)

const storeName = "preferences"

var ErrInvalidPreference = errors.New("invalid preference")

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

var validate = validation.New()

// Preferences is the persisted preference object.
type Preferences struct {
	Theme            Theme  `json:"theme"`
	SidebarCollapsed bool   `json:"sidebarCollapsed"`
	Language         string `json:"language"`
	Currency         string `json:"currency"`
	Notifications    bool   `json:"notifications"`
	EmailUpdates     bool   `json:"emailUpdates"`
}

// Defaults returns the preferences of a new shopper.
func Defaults() Preferences {
	return Preferences{
		Theme:         ThemeSystem,
		Language:      "en",
		Currency:      "USD",
		Notifications: true,
		EmailUpdates:  true,
	}
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Theme            *Theme  `json:"theme,omitempty"            validate:"omitnil,oneof=light dark system"`
	SidebarCollapsed *bool   `json:"sidebarCollapsed,omitempty"`
	Language         *string `json:"language,omitempty"         validate:"omitnil,min=2,max=8"`
	Currency         *string `json:"currency,omitempty"         validate:"omitnil,oneof=USD EUR GBP CAD AUD"`
	Notifications    *bool   `json:"notifications,omitempty"`
	EmailUpdates     *bool   `json:"emailUpdates,omitempty"`
}

// Validate checks the patch against its validate tags.
// Returns ErrInvalidPreference wrapping the validation errors.
func (p Patch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreference, err)
	}
	return nil
}

func (p Patch) apply(to Preferences) Preferences {
	if p.Theme != nil {
		to.Theme = *p.Theme
	}
	if p.SidebarCollapsed != nil {
		to.SidebarCollapsed = *p.SidebarCollapsed
	}
	if p.Language != nil {
		to.Language = *p.Language
	}
	if p.Currency != nil {
		to.Currency = *p.Currency
	}
	if p.Notifications != nil {
		to.Notifications = *p.Notifications
	}
	if p.EmailUpdates != nil {
		to.EmailUpdates = *p.EmailUpdates
	}
	return to
}

// Store is a mutex-guarded preference object written through to durable storage.
type Store struct {
	mu      sync.RWMutex
	prefs   Preferences
	repo    persist.Repository
	key     string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Store and restores it from repo. Keys missing from the stored
// blob keep their defaults. An unreadable blob yields the defaults.
func New(ctx context.Context, repo persist.Repository, key string, logger *slog.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		prefs:   Defaults(),
		repo:    repo,
		key:     key,
		logger:  logger.With("component", "preferences", "key", key),
		metrics: m,
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	restored := Defaults()
	if err := persist.LoadJSON(ctx, s.repo, s.key, &restored); err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.WarnContext(ctx, "Failed to restore preferences, using defaults", "error", err)
			s.metrics.PersistFailure(storeName, "load")
		}
		return
	}
	// stored values that are no longer supported fall back one by one
	defaults := Defaults()
	if (Patch{Theme: &restored.Theme}).Validate() != nil {
		restored.Theme = defaults.Theme
	}
	if (Patch{Currency: &restored.Currency}).Validate() != nil {
		restored.Currency = defaults.Currency
	}
	if (Patch{Language: &restored.Language}).Validate() != nil {
		restored.Language = defaults.Language
	}
	s.prefs = restored
}

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Update merges the non-nil fields of patch into the preferences.
// Returns ErrInvalidPreference and leaves the state untouched if the patch carries
// an unsupported theme, currency or language.
func (s *Store) Update(ctx context.Context, patch Patch) (Preferences, error) {
	if err := patch.Validate(); err != nil {
		return s.Get(), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = patch.apply(s.prefs)
	s.commit(ctx, "update")
	return s.prefs, nil
}

// SetTheme changes the theme.
func (s *Store) SetTheme(ctx context.Context, theme Theme) (Preferences, error) {
	return s.Update(ctx, Patch{Theme: &theme})
}

// ToggleSidebar flips the collapsed state of the sidebar.
func (s *Store) ToggleSidebar(ctx context.Context) Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	collapsed := !s.prefs.SidebarCollapsed
	s.prefs = Patch{SidebarCollapsed: &collapsed}.apply(s.prefs)
	s.commit(ctx, "toggle_sidebar")
	return s.prefs
}

func (s *Store) commit(ctx context.Context, op string) {
	s.metrics.Mutation(storeName, op)
	if err := persist.SaveJSON(ctx, s.repo, s.key, s.prefs); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist preferences", "op", op, "error", err)
		s.metrics.PersistFailure(storeName, "save")
	}
}
