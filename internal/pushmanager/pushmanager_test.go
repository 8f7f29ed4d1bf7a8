package pushmanager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	wpcrypto "github.com/arguslabs/argus-go/internal/webpush/crypto"
)

func testSubscription(t *testing.T) Subscription {
	t.Helper()
	pub, _, err := wpcrypto.GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("generate client keypair: %v", err)
	}
	auth := make([]byte, 16)
	return Subscription{
		Endpoint: "https://push.example.com/endpoint-1",
		Keys: Keys{
			P256DH: wpcrypto.EncodeBase64URL(pub),
			Auth:   wpcrypto.EncodeBase64URL(auth),
		},
	}
}

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestAddSubscriptionAppendsThenOverwrites(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{SubscriptionsPath: filepath.Join(dir, "subs.json")})

	sub := testSubscription(t)
	if err := m.AddSubscription(sub); err != nil {
		t.Fatalf("add: %v", err)
	}
	if len(m.Subscriptions()) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(m.Subscriptions()))
	}

	sub.Keys.Auth = wpcrypto.EncodeBase64URL(make([]byte, 16))
	if err := m.AddSubscription(sub); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if len(m.Subscriptions()) != 1 {
		t.Fatalf("expected overwrite to keep count at 1, got %d", len(m.Subscriptions()))
	}
}

func TestRemoveSubscription(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{SubscriptionsPath: filepath.Join(dir, "subs.json")})
	sub := testSubscription(t)
	_ = m.AddSubscription(sub)

	removed, err := m.RemoveSubscription(sub.Endpoint)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report found")
	}
	if len(m.Subscriptions()) != 0 {
		t.Fatal("expected empty subscription set after removal")
	}

	removed, err = m.RemoveSubscription("https://does-not-exist")
	if err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if removed {
		t.Fatal("expected removal of unknown endpoint to report not found")
	}
}

func TestSubscriptionsPersistAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subs.json")

	m1 := newManager(t, Config{SubscriptionsPath: path})
	sub := testSubscription(t)
	if err := m1.AddSubscription(sub); err != nil {
		t.Fatalf("add: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read persisted file: %v", err)
	}
	var parsed subscriptionFile
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("parse persisted file: %v", err)
	}
	if len(parsed.Subscriptions) != 1 || parsed.Subscriptions[0].Endpoint != sub.Endpoint {
		t.Fatalf("unexpected persisted content: %+v", parsed)
	}

	m2 := newManager(t, Config{SubscriptionsPath: path})
	if len(m2.Subscriptions()) != 1 {
		t.Fatalf("expected reload to restore 1 subscription, got %d", len(m2.Subscriptions()))
	}
}

func TestSuppressionLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{SuppressionsPath: filepath.Join(dir, "supp.json")})

	future := time.Now().Add(time.Hour)
	if err := m.AddSuppression("1_g_1_d", future); err != nil {
		t.Fatalf("add suppression: %v", err)
	}
	if !m.IsSuppressed("1_g_1_d") {
		t.Fatal("expected future suppression to be active")
	}

	past := time.Now().Add(-time.Hour)
	if err := m.AddSuppression("expired", past); err != nil {
		t.Fatalf("add expired suppression: %v", err)
	}
	if m.IsSuppressed("expired") {
		t.Fatal("expected past suppression to be inactive")
	}

	list := m.ListSuppressions()
	if _, ok := list["1_g_1_d"]; !ok {
		t.Fatal("expected active suppression in listing")
	}

	if err := m.RemoveSuppression("1_g_1_d"); err != nil {
		t.Fatalf("remove suppression: %v", err)
	}
	if m.IsSuppressed("1_g_1_d") {
		t.Fatal("expected suppression removed")
	}
}

func TestNotifyForTestNoOpWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{Enabled: false, SubscriptionsPath: filepath.Join(dir, "subs.json")})
	_ = m.AddSubscription(testSubscription(t))

	if m.NotifyForTest(context.Background(), "1_g_1_d", "t", "b", "", nil) {
		t.Fatal("expected no-op when push disabled")
	}
}

func TestNotifyForTestNoOpWhenSuppressed(t *testing.T) {
	dir := t.TempDir()
	m := newManager(t, Config{
		Enabled:            true,
		VapidSubject:       "mailto:a@b",
		VapidPublicKeyB64:  "pub",
		VapidPrivateKeyB64: "priv",
		SubscriptionsPath:  filepath.Join(dir, "subs.json"),
		SuppressionsPath:   filepath.Join(dir, "supp.json"),
	})
	_ = m.AddSubscription(testSubscription(t))
	_ = m.AddSuppression("1_g_1_d", time.Now().Add(time.Hour))

	if m.NotifyForTest(context.Background(), "1_g_1_d", "t", "b", "", nil) {
		t.Fatal("expected no-op when test is suppressed")
	}
}

func TestNotifyForTestDeliversAndReturnsTrueOn2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	_, priv, err := wpcrypto.GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("generate vapid key: %v", err)
	}

	dir := t.TempDir()
	m := newManager(t, Config{
		Enabled:            true,
		VapidSubject:       "mailto:a@b",
		VapidPublicKeyB64:  "pub",
		VapidPrivateKeyB64: wpcrypto.EncodeBase64URL(priv),
		SubscriptionsPath:  filepath.Join(dir, "subs.json"),
	})
	sub := testSubscription(t)
	sub.Endpoint = srv.URL
	_ = m.AddSubscription(sub)

	if !m.NotifyForTest(context.Background(), "1_g_1_d", "t", "b", "", nil) {
		t.Fatal("expected successful delivery to count as notified")
	}
}

func TestNotifyForTestPrunesStaleSubscriptionOn410(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, priv, err := wpcrypto.GenerateECDHKeyPair()
	if err != nil {
		t.Fatalf("generate vapid key: %v", err)
	}

	dir := t.TempDir()
	m := newManager(t, Config{
		Enabled:            true,
		VapidSubject:       "mailto:a@b",
		VapidPublicKeyB64:  "pub",
		VapidPrivateKeyB64: wpcrypto.EncodeBase64URL(priv),
		SubscriptionsPath:  filepath.Join(dir, "subs.json"),
	})
	sub := testSubscription(t)
	sub.Endpoint = srv.URL
	_ = m.AddSubscription(sub)

	if m.NotifyForTest(context.Background(), "1_g_1_d", "t", "b", "", nil) {
		t.Fatal("expected 410 delivery to not count as successful")
	}
	if len(m.Subscriptions()) != 0 {
		t.Fatal("expected stale subscription to be pruned after 410")
	}
}
