// Package pushmanager implements the Web Push subscription/suppression
// state and delivery pipeline.
package pushmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	wpcrypto "github.com/arguslabs/argus-go/internal/webpush/crypto"
	"github.com/arguslabs/argus-go/internal/webpush/encoder"
	"github.com/arguslabs/argus-go/internal/webpush/vapid"
)

const (
	pushTTLSeconds = 86400
	httpTimeout    = 10 * time.Second
	timeLayout     = "2006-01-02 15:04:05"
)

// Keys mirrors the "keys" object of a W3C PushSubscription.
type Keys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is the persisted/wire shape of a push subscription.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

type subscriptionFile struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Config carries the VAPID material and persistence paths needed to drive
// notifications.
type Config struct {
	Enabled            bool
	VapidSubject       string
	VapidPublicKeyB64  string
	VapidPrivateKeyB64 string
	SubscriptionsPath  string
	SuppressionsPath   string
}

// Manager owns the in-memory subscription set and suppression map,
// persisting both to disk after every mutation.
type Manager struct {
	cfg Config
	log *zap.SugaredLogger

	httpClient *http.Client

	subMu sync.Mutex
	subs  []Subscription

	suppMu sync.Mutex
	supp   map[string]time.Time
}

// New constructs a Manager and loads any existing persisted state. If
// cfg.Enabled is false, Manager still loads stored state (so configuration
// can be toggled later) but notify/serve operations become no-ops.
func New(cfg Config, log *zap.SugaredLogger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &Manager{
		cfg:  cfg,
		log:  log,
		supp: make(map[string]time.Time),
		httpClient: &http.Client{
			Timeout: httpTimeout,
		},
	}
	if err := m.loadSubscriptions(); err != nil {
		return nil, err
	}
	if err := m.loadSuppressions(); err != nil {
		return nil, err
	}
	return m, nil
}

// Enabled reports whether push is configured on.
func (m *Manager) Enabled() bool {
	return m.cfg.Enabled
}

// VapidPublicKey returns the raw base64url-encoded VAPID public key.
func (m *Manager) VapidPublicKey() string {
	return m.cfg.VapidPublicKeyB64
}

// AddSubscription overwrites an existing subscription with the same
// endpoint, or appends it, then persists.
func (m *Manager) AddSubscription(s Subscription) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for i, existing := range m.subs {
		if existing.Endpoint == s.Endpoint {
			m.subs[i] = s
			return m.persistSubscriptionsLocked()
		}
	}
	m.subs = append(m.subs, s)
	return m.persistSubscriptionsLocked()
}

// RemoveSubscription removes the subscription matching endpoint, if any,
// and persists. Returns false if no matching subscription was found.
func (m *Manager) RemoveSubscription(endpoint string) (bool, error) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for i, existing := range m.subs {
		if existing.Endpoint == endpoint {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return true, m.persistSubscriptionsLocked()
		}
	}
	return false, nil
}

// Subscriptions returns a copy of the current subscription set.
func (m *Manager) Subscriptions() []Subscription {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	out := make([]Subscription, len(m.subs))
	copy(out, m.subs)
	return out
}

// AddSuppression sets test_id's suppression expiry and persists.
func (m *Manager) AddSuppression(testID string, until time.Time) error {
	m.suppMu.Lock()
	defer m.suppMu.Unlock()
	m.supp[testID] = until
	return m.persistSuppressionsLocked()
}

// RemoveSuppression clears test_id's suppression, if present, and persists.
func (m *Manager) RemoveSuppression(testID string) error {
	m.suppMu.Lock()
	defer m.suppMu.Unlock()
	delete(m.supp, testID)
	return m.persistSuppressionsLocked()
}

// ListSuppressions returns a copy of the current suppression map,
// formatted as spec's "YYYY-MM-DD HH:MM:SS" strings.
func (m *Manager) ListSuppressions() map[string]string {
	m.suppMu.Lock()
	defer m.suppMu.Unlock()
	out := make(map[string]string, len(m.supp))
	for k, v := range m.supp {
		out[k] = v.Format(timeLayout)
	}
	return out
}

// IsSuppressed reports whether test_id has an active (future) suppression.
func (m *Manager) IsSuppressed(testID string) bool {
	m.suppMu.Lock()
	defer m.suppMu.Unlock()
	until, ok := m.supp[testID]
	return ok && until.After(time.Now())
}

// NotifyPayload is the JSON body encrypted and delivered to subscribers.
type NotifyPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// NotifyForTest sends a push notification for a test: no-op if push is
// disabled or test_id is suppressed; otherwise delivers to every
// subscription, pruning stale (404/410) ones, and returns true iff at
// least one delivery succeeded.
func (m *Manager) NotifyForTest(ctx context.Context, testID, title, body, icon string, data any) bool {
	if !m.cfg.Enabled {
		return false
	}
	if m.IsSuppressed(testID) {
		return false
	}

	payload, err := json.Marshal(NotifyPayload{Title: title, Body: body, Icon: icon, Data: data})
	if err != nil {
		m.log.Errorw("marshal push payload failed", "test_id", testID, "error", err)
		return false
	}

	delivered := false
	for _, sub := range m.Subscriptions() {
		if err := m.deliver(ctx, sub, payload); err != nil {
			if isStaleSubscriptionErr(err) {
				m.log.Infow("removing stale push subscription", "endpoint", sub.Endpoint)
				_, _ = m.RemoveSubscription(sub.Endpoint)
				continue
			}
			m.log.Warnw("push delivery failed", "endpoint", sub.Endpoint, "error", err)
			continue
		}
		delivered = true
	}
	return delivered
}

type staleSubscriptionError struct{ statusCode int }

func (e staleSubscriptionError) Error() string {
	return fmt.Sprintf("stale subscription (status %d)", e.statusCode)
}

func isStaleSubscriptionErr(err error) bool {
	_, ok := err.(staleSubscriptionError)
	return ok
}

func (m *Manager) deliver(ctx context.Context, sub Subscription, payload []byte) error {
	p256dh, err := wpcrypto.DecodeBase64URL(sub.Keys.P256DH)
	if err != nil {
		return fmt.Errorf("decode p256dh: %w", err)
	}
	auth, err := wpcrypto.DecodeBase64URL(sub.Keys.Auth)
	if err != nil {
		return fmt.Errorf("decode auth: %w", err)
	}

	body, err := encoder.Encode(payload, encoder.Subscription{
		Endpoint: sub.Endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	aud, err := vapid.ExtractAudience(sub.Endpoint)
	if err != nil {
		return fmt.Errorf("extract audience: %w", err)
	}
	jwt, err := vapid.Build(m.cfg.VapidPrivateKeyB64, aud, m.cfg.VapidSubject, 0, time.Now())
	if err != nil {
		return fmt.Errorf("build vapid jwt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", fmt.Sprintf("%d", pushTTLSeconds))
	req.Header.Set("Authorization", fmt.Sprintf("vapid t=%s, k=%s", jwt, m.cfg.VapidPublicKeyB64))

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to push service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return staleSubscriptionError{statusCode: resp.StatusCode}
	default:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
}
