// Package family implements the shared-balance and settings surface of
// the application: per-role balance documents with an append-only
// history, per-role settings, push-token registration, and live balance
// subscriptions — all read-modify-write over the document store.
package family

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"familyroom/internal/push"
	"familyroom/internal/store"
)

const (
	collectionConfig  = "config"
	collectionBalance = "balance"
	collectionHistory = "balance-history"

	// DefaultNotificationTime is the initial daily reminder time.
	DefaultNotificationTime = "19:00"

	// DefaultHomeRadius is the initial home geofence radius in meters.
	DefaultHomeRadius = 500
)

// ErrUnknownRole indicates a role outside the configured pair.
var ErrUnknownRole = errors.New("family: unknown role")

// Balance is one role's current balance document.
type Balance struct {
	Role      string    `json:"role"`
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// Summary is both balances plus their total.
type Summary struct {
	Balances []Balance `json:"balances"`
	Total    float64   `json:"total"`
}

// HistoryEntry is one append-only balance change record.
type HistoryEntry struct {
	Role   string    `json:"role"`
	Amount float64   `json:"amount"`
	At     time.Time `json:"at"`
}

// Settings is one role's settings document.
type Settings struct {
	NotificationTime string `json:"notificationTime"`
	HomeRadius       int    `json:"homeRadius"`
}

// SettingsPatch is a partial settings update; nil fields are left as is.
type SettingsPatch struct {
	NotificationTime *string `json:"notificationTime"`
	HomeRadius       *int    `json:"homeRadius"`
}

// Service coordinates balances, settings and notifications for the two
// configured roles.
type Service struct {
	store   store.DocumentStore
	gateway push.Gateway
	roles   [2]string
	logger  *slog.Logger
}

// NewService creates a service over the given store and gateway.
func NewService(st store.DocumentStore, gw push.Gateway, roles [2]string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, gateway: gw, roles: roles, logger: logger}
}

// Roles returns the configured role pair.
func (s *Service) Roles() [2]string { return s.roles }

// PartnerRole returns the other configured role.
func (s *Service) PartnerRole(role string) (string, error) {
	switch role {
	case s.roles[0]:
		return s.roles[1], nil
	case s.roles[1]:
		return s.roles[0], nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
}

func (s *Service) checkRole(role string) error {
	if role != s.roles[0] && role != s.roles[1] {
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return nil
}

// SetBalance overwrites a role's balance and appends a history entry.
func (s *Service) SetBalance(role string, amount float64) (Balance, error) {
	if err := s.checkRole(role); err != nil {
		return Balance{}, err
	}
	now := time.Now().UTC()
	doc := store.Document{
		"amount":    amount,
		"updatedAt": now,
		"updatedBy": role,
	}
	if err := s.store.Put(collectionBalance, role, doc); err != nil {
		return Balance{}, fmt.Errorf("family: put balance: %w", err)
	}
	entry := store.Document{"role": role, "amount": amount, "at": now}
	if err := s.store.Append(collectionHistory, entry); err != nil {
		return Balance{}, fmt.Errorf("family: append history: %w", err)
	}
	return Balance{Role: role, Amount: amount, UpdatedAt: now, UpdatedBy: role}, nil
}

// Balance returns a role's current balance. A role with no balance
// document yet reads as zero.
func (s *Service) Balance(role string) (Balance, error) {
	if err := s.checkRole(role); err != nil {
		return Balance{}, err
	}
	doc, err := s.store.Get(collectionBalance, role)
	if errors.Is(err, store.ErrNotFound) {
		return Balance{Role: role}, nil
	}
	if err != nil {
		return Balance{}, fmt.Errorf("family: get balance: %w", err)
	}
	return balanceFromDoc(role, doc), nil
}

// Balances returns both balances and their total.
func (s *Service) Balances() (Summary, error) {
	var sum Summary
	for _, role := range s.roles {
		b, err := s.Balance(role)
		if err != nil {
			return Summary{}, err
		}
		sum.Balances = append(sum.Balances, b)
		sum.Total += b.Amount
	}
	return sum, nil
}

// History returns the most recent n balance changes, newest first.
func (s *Service) History(n int) ([]HistoryEntry, error) {
	docs, err := s.store.Recent(collectionHistory, n)
	if err != nil {
		return nil, fmt.Errorf("family: read history: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, HistoryEntry{
			Role:   stringField(doc, "role"),
			Amount: floatField(doc, "amount"),
			At:     timeField(doc, "at"),
		})
	}
	return entries, nil
}

// WatchBalance subscribes to a role's balance document. The caller owns
// the returned subscription and must Cancel it.
func (s *Service) WatchBalance(role string) (*store.Subscription, error) {
	if err := s.checkRole(role); err != nil {
		return nil, err
	}
	return s.store.Watch(collectionBalance, role), nil
}

// Settings returns a role's settings, creating them with defaults on
// first access.
func (s *Service) Settings(role string) (Settings, error) {
	if err := s.checkRole(role); err != nil {
		return Settings{}, err
	}
	doc, err := s.store.Get(collectionConfig, role)
	if errors.Is(err, store.ErrNotFound) {
		defaults := store.Document{
			"notificationTime": DefaultNotificationTime,
			"homeRadius":       DefaultHomeRadius,
			"createdAt":        time.Now().UTC(),
		}
		if err := s.store.Put(collectionConfig, role, defaults); err != nil {
			return Settings{}, fmt.Errorf("family: create settings: %w", err)
		}
		return Settings{NotificationTime: DefaultNotificationTime, HomeRadius: DefaultHomeRadius}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("family: get settings: %w", err)
	}
	return settingsFromDoc(doc), nil
}

// UpdateSettings merges a partial update into a role's settings.
func (s *Service) UpdateSettings(role string, patch SettingsPatch) (Settings, error) {
	current, err := s.Settings(role)
	if err != nil {
		return Settings{}, err
	}
	fields := store.Document{"updatedAt": time.Now().UTC()}
	if patch.NotificationTime != nil {
		current.NotificationTime = *patch.NotificationTime
		fields["notificationTime"] = *patch.NotificationTime
	}
	if patch.HomeRadius != nil {
		current.HomeRadius = *patch.HomeRadius
		fields["homeRadius"] = *patch.HomeRadius
	}
	if err := s.store.Update(collectionConfig, role, fields); err != nil {
		return Settings{}, fmt.Errorf("family: update settings: %w", err)
	}
	return current, nil
}

// RegisterToken stores a role's push-notification device token.
func (s *Service) RegisterToken(role, token string) error {
	if _, err := s.Settings(role); err != nil {
		return err
	}
	if err := s.store.Update(collectionConfig, role, store.Document{"pushToken": token}); err != nil {
		return fmt.Errorf("family: register token: %w", err)
	}
	return nil
}

// Notify delivers a push notification to a role's registered device.
// Delivery is best-effort: a missing token or gateway failure is logged
// and swallowed.
func (s *Service) Notify(ctx context.Context, role, title, body string, data map[string]string) error {
	if err := s.checkRole(role); err != nil {
		return err
	}
	doc, err := s.store.Get(collectionConfig, role)
	if err != nil {
		s.logger.Info("notify skipped, no settings", slog.String("role", role))
		return nil
	}
	token := stringField(doc, "pushToken")
	if token == "" {
		s.logger.Info("notify skipped, no token", slog.String("role", role))
		return nil
	}
	if err := s.gateway.Send(ctx, token, title, body, data); err != nil {
		s.logger.Warn("push delivery failed", slog.String("role", role), slog.Any("err", err))
	}
	return nil
}

func balanceFromDoc(role string, doc store.Document) Balance {
	return Balance{
		Role:      role,
		Amount:    floatField(doc, "amount"),
		UpdatedAt: timeField(doc, "updatedAt"),
		UpdatedBy: stringField(doc, "updatedBy"),
	}
}

func settingsFromDoc(doc store.Document) Settings {
	return Settings{
		NotificationTime: stringField(doc, "notificationTime"),
		HomeRadius:       intField(doc, "homeRadius"),
	}
}

func stringField(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

func floatField(doc store.Document, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func intField(doc store.Document, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func timeField(doc store.Document, key string) time.Time {
	v, _ := doc[key].(time.Time)
	return v
}
