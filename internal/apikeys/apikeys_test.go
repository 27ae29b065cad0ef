package apikeys

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "short"},
		{"12345678", "12345678"},
		{"123456789", "1234•6789"},
		{"sk-abcdefghijklmnop", "sk-a" + strings.Repeat("•", 11) + "mnop"},
	}
	for _, tc := range cases {
		if got := Mask(tc.key); got != tc.want {
			t.Fatalf("Mask(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}

func TestGetWithoutRow(t *testing.T) {
	s := NewService(NewMemoryRepo())
	got, err := s.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (MaskedKeys{}) {
		t.Fatalf("expected empty masked keys, got %+v", got)
	}
}

func TestSaveAndGetMasked(t *testing.T) {
	s := NewService(NewMemoryRepo())
	ctx := context.Background()

	err := s.Save(ctx, "user-1", Update{
		VapiPrivateKey: "priv-1234567890",
		GeminiAPIKey:   "gem-abcdefghij",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.VapiPrivateKey != "priv"+strings.Repeat("•", 7)+"7890" {
		t.Fatalf("private key mask = %q", got.VapiPrivateKey)
	}
	if got.VapiPublicKey != "" {
		t.Fatalf("public key should be empty, got %q", got.VapiPublicKey)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("updated_at not set")
	}
}

type captureActivity struct {
	userID, message string
	calls           int
	err             error
}

func (c *captureActivity) LogAPIKeysUpdated(ctx context.Context, userID, message string) error {
	c.calls++
	c.userID, c.message = userID, message
	return c.err
}

func TestSaveRecordsActivity(t *testing.T) {
	act := &captureActivity{}
	s := NewService(NewMemoryRepo()).WithActivity(act)

	err := s.Save(context.Background(), "user-1", Update{
		VapiPrivateKey: "priv-secret-value",
		GeminiAPIKey:   "gem-secret-value",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if act.calls != 1 || act.userID != "user-1" {
		t.Fatalf("activity not recorded: %+v", act)
	}
	if act.message != "API keys updated: vapi_private_key, gemini_api_key" {
		t.Fatalf("message = %q", act.message)
	}
	if strings.Contains(act.message, "secret") {
		t.Fatalf("key material leaked into activity: %q", act.message)
	}
}

func TestSaveActivityFailureDoesNotFail(t *testing.T) {
	act := &captureActivity{err: errors.New("activity store down")}
	s := NewService(NewMemoryRepo()).WithActivity(act)

	if err := s.Save(context.Background(), "user-1", Update{GeminiAPIKey: "gem-key"}); err != nil {
		t.Fatalf("Save should not fail on activity error: %v", err)
	}
	k, err := s.GetRaw(context.Background(), "user-1")
	if err != nil || k.GeminiAPIKey != "gem-key" {
		t.Fatalf("keys not stored: %+v %v", k, err)
	}
}

func TestSavePartialRotation(t *testing.T) {
	repo := NewMemoryRepo()
	s := NewService(repo)
	ctx := context.Background()

	if err := s.Save(ctx, "user-1", Update{VapiPrivateKey: "priv-old", VapiPublicKey: "pub-old"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := s.Save(ctx, "user-1", Update{VapiPrivateKey: "priv-new"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	k, err := s.GetRaw(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetRaw: %v", err)
	}
	if k.VapiPrivateKey != "priv-new" {
		t.Fatalf("private key = %q, want priv-new", k.VapiPrivateKey)
	}
	if k.VapiPublicKey != "pub-old" {
		t.Fatalf("public key lost on partial update: %q", k.VapiPublicKey)
	}
}
