package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Taump/attestation-telegram/internal/attest"
	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/messages"
	"github.com/Taump/attestation-telegram/internal/order"
	"github.com/Taump/attestation-telegram/internal/session"
	"github.com/Taump/attestation-telegram/internal/token"
)

var alice = identity.Identity{UserID: "42", Username: "alice"}

type stubValidator struct{}

func (stubValidator) Chain() string { return "stub" }
func (stubValidator) IsWalletAddress(address string) bool {
	return strings.HasPrefix(address, "VALID")
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, string, identity.Identity) (string, error) {
	return "unit-123", nil
}

type stubPairer struct{}

func (stubPairer) PairingURL() (string, error) { return "obyte:PUB@hub#secret", nil }
func (stubPairer) PairingURLWithData(address string, id identity.Identity) (string, error) {
	return fmt.Sprintf("obyte:PUB@hub#%s-%s", address, id.UserID), nil
}

type recordingMessenger struct {
	mu    sync.Mutex
	texts []string
}

func (m *recordingMessenger) SendToDevice(_ context.Context, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *recordingMessenger) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func newTestServer(t *testing.T, eventsToken string) (*Server, *attest.Orchestrator, *recordingMessenger) {
	t.Helper()
	messenger := &recordingMessenger{}
	core := attest.New(nil, order.NewMemory(), session.NewMemory(time.Minute), stubPublisher{}, messenger, stubPairer{}, stubValidator{}, attest.Links{
		BaseURL:     "https://attest.example.org",
		BotUsername: "attest_bot",
	})
	return New(nil, core, eventsToken), core, messenger
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Error
}

func TestVerifyRedirects(t *testing.T) {
	t.Parallel()
	srv, core, _ := newTestServer(t, "")
	ctx := context.Background()

	_, _ = core.HandleAttest(ctx, alice)
	_, _ = core.HandleText(ctx, alice, "VALID_A1")

	req := httptest.NewRequest(http.MethodGet, "/verify/VALID_A1?userId=42&username=alice", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body)
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "VALID_A1") {
		t.Fatalf("unexpected location: %s", location)
	}
}

func TestVerifyErrorCodes(t *testing.T) {
	t.Parallel()
	srv, core, _ := newTestServer(t, "")
	ctx := context.Background()

	_, _ = core.HandleAttest(ctx, alice)
	_, _ = core.HandleText(ctx, alice, "VALID_A1")
	_, _ = core.HandleConfirm(ctx, alice)

	cases := []struct {
		name   string
		target string
		code   string
	}{
		{"attested order", "/verify/VALID_A1?userId=42&username=alice", "ORDER_ALREADY_ATTESTED"},
		{"unknown order", "/verify/VALID_A2?userId=42&username=alice", "ORDER_NOT_FOUND"},
		{"bad address", "/verify/bogus?userId=42&username=alice", "INVALID_DATA"},
		{"missing identity", "/verify/VALID_A1?username=alice", "INVALID_DATA"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, got)
			}
		})
	}
}

func TestPairingRedirects(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/pairing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); !strings.HasPrefix(location, "obyte:") {
		t.Fatalf("unexpected location: %s", location)
	}
}

func postJSON(srv *Server, target, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestDevicePairedEventGreetsDevice(t *testing.T) {
	t.Parallel()
	srv, _, messenger := newTestServer(t, "")

	rec := postJSON(srv, "/events/device-paired", `{"device_address":"0DEVICE"}`, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
	}
	sent := messenger.sent()
	if len(sent) == 0 || sent[0] != messages.Welcome {
		t.Fatalf("device was not greeted: %v", sent)
	}
}

func TestDevicePairedEventRejectsEmptyBody(t *testing.T) {
	t.Parallel()
	srv, _, _ := newTestServer(t, "")

	rec := postJSON(srv, "/events/device-paired", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "INVALID_DATA" {
		t.Fatalf("expected INVALID_DATA, got %s", got)
	}
}

func TestWalletVerifiedEventBridgesIntoChat(t *testing.T) {
	t.Parallel()
	srv, core, messenger := newTestServer(t, "")
	ctx := context.Background()

	rec := postJSON(srv, "/events/wallet-verified", `{"device_address":"0DEVICE","wallet_address":"VALID_A1"}`, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
	}

	var deepLink string
	for _, text := range messenger.sent() {
		if strings.Contains(text, "https://t.me/") {
			deepLink = text
		}
	}
	if deepLink == "" {
		t.Fatalf("device did not receive a continue link: %v", messenger.sent())
	}

	// Opening the deep link consumes the stored session and lands the user
	// on the confirmation step with the verified address.
	payload := token.Encode(map[string]string{"address": "0DEVICE"})
	reply, err := core.HandleStart(ctx, alice, payload)
	if err != nil {
		t.Fatalf("start with payload: %v", err)
	}
	var confirmed bool
	for _, msg := range reply.Messages {
		if strings.Contains(msg.Text, messages.ConfirmQuestion) {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatalf("expected confirmation prompt, got %+v", reply.Messages)
	}
}

func TestWalletVerifiedEventRejectsInvalidAddress(t *testing.T) {
	t.Parallel()
	srv, _, messenger := newTestServer(t, "")

	rec := postJSON(srv, "/events/wallet-verified", `{"device_address":"0DEVICE","wallet_address":"bogus"}`, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body)
	}
	sent := messenger.sent()
	if len(sent) != 1 || sent[0] != messages.InvalidWalletAddress {
		t.Fatalf("expected invalid-address notice on device, got %v", sent)
	}
}

func TestEventsTokenGuardsWebhooks(t *testing.T) {
	t.Parallel()
	srv, _, messenger := newTestServer(t, "hook-secret")

	rec := postJSON(srv, "/events/device-paired", `{"device_address":"0DEVICE"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED, got %s", got)
	}
	if len(messenger.sent()) != 0 {
		t.Fatalf("handler ran despite missing token")
	}

	rec = postJSON(srv, "/events/device-paired", `{"device_address":"0DEVICE"}`, "hook-secret")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 with token, got %d", rec.Code)
	}
}
