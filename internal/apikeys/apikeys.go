package apikeys

import (
	"context"
	"errors"
	"strings"
	"time"

	"voiceagent-dashboard/pkg/logger"
)

// ErrNotFound means the user has never stored any credentials.
var ErrNotFound = errors.New("apikeys: not found")

// Keys is one user's upstream credentials. At most one row per user.
type Keys struct {
	UserID         string    `json:"user_id" db:"user_id"`
	VapiPrivateKey string    `json:"vapi_private_key" db:"vapi_private_key"`
	VapiPublicKey  string    `json:"vapi_public_key" db:"vapi_public_key"`
	GeminiAPIKey   string    `json:"gemini_api_key" db:"gemini_api_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// MaskedKeys is the only shape key reads ever leave the service in. Raw
// key material stays server-side.
type MaskedKeys struct {
	VapiPrivateKey string    `json:"vapi_private_key,omitempty"`
	VapiPublicKey  string    `json:"vapi_public_key,omitempty"`
	GeminiAPIKey   string    `json:"gemini_api_key,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Update carries the keys to store. Empty fields leave the stored value
// untouched, so users can rotate one key without re-entering the rest.
type Update struct {
	VapiPrivateKey string `json:"vapi_private_key"`
	VapiPublicKey  string `json:"vapi_public_key"`
	GeminiAPIKey   string `json:"gemini_api_key"`
}

// changedFields names the keys an update rotates, for activity messages.
func (u Update) changedFields() []string {
	var out []string
	if u.VapiPrivateKey != "" {
		out = append(out, "vapi_private_key")
	}
	if u.VapiPublicKey != "" {
		out = append(out, "vapi_public_key")
	}
	if u.GeminiAPIKey != "" {
		out = append(out, "gemini_api_key")
	}
	return out
}

// Repository is the persistence contract for per-user credentials.
type Repository interface {
	Get(ctx context.Context, userID string) (Keys, error)
	// Upsert writes the row for k.UserID, inserting on first save.
	Upsert(ctx context.Context, k Keys) error
}

// ActivityLog records that credentials changed. Optional.
type ActivityLog interface {
	LogAPIKeysUpdated(ctx context.Context, userID, message string) error
}

// Service stores and reveals credentials. Reveal is always masked.
type Service struct {
	repo     Repository
	activity ActivityLog
	clock    func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) WithActivity(a ActivityLog) *Service {
	s.activity = a
	return s
}

// Get returns the user's keys in masked form. A user with no stored row
// gets an empty MaskedKeys, not an error.
func (s *Service) Get(ctx context.Context, userID string) (MaskedKeys, error) {
	k, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return MaskedKeys{}, nil
	}
	if err != nil {
		return MaskedKeys{}, err
	}
	return MaskedKeys{
		VapiPrivateKey: Mask(k.VapiPrivateKey),
		VapiPublicKey:  Mask(k.VapiPublicKey),
		GeminiAPIKey:   Mask(k.GeminiAPIKey),
		CreatedAt:      k.CreatedAt,
		UpdatedAt:      k.UpdatedAt,
	}, nil
}

// GetRaw returns the unmasked keys for server-side upstream calls.
func (s *Service) GetRaw(ctx context.Context, userID string) (Keys, error) {
	return s.repo.Get(ctx, userID)
}

// Save merges the update into the stored row. Empty update fields keep
// their stored values.
func (s *Service) Save(ctx context.Context, userID string, u Update) error {
	now := s.clock().UTC()
	k, err := s.repo.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		k = Keys{UserID: userID, CreatedAt: now}
	case err != nil:
		return err
	}

	if u.VapiPrivateKey != "" {
		k.VapiPrivateKey = u.VapiPrivateKey
	}
	if u.VapiPublicKey != "" {
		k.VapiPublicKey = u.VapiPublicKey
	}
	if u.GeminiAPIKey != "" {
		k.GeminiAPIKey = u.GeminiAPIKey
	}
	k.UpdatedAt = now
	if err := s.repo.Upsert(ctx, k); err != nil {
		return err
	}

	if changed := u.changedFields(); s.activity != nil && len(changed) > 0 {
		msg := "API keys updated: " + strings.Join(changed, ", ")
		if err := s.activity.LogAPIKeysUpdated(ctx, userID, msg); err != nil {
			logger.From(ctx).Warn("activity log failed", "error", err)
		}
	}
	return nil
}

// Mask hides the middle of a key, keeping the first and last 4 characters.
// Keys of 8 characters or fewer are returned whole.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return key
	}
	return key[:4] + strings.Repeat("•", len(key)-8) + key[len(key)-4:]
}
