package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Taump/attestation-telegram/internal/attest"
)

func TestResolveSender(t *testing.T) {
	t.Parallel()

	id := resolveSender(nil)
	if id.UserID != "" || id.Username != "" {
		t.Fatalf("expected empty identity")
	}

	id = resolveSender(&tgbotapi.User{ID: 123, UserName: " alice "})
	if id.UserID != "123" || id.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestRenderMarkup(t *testing.T) {
	t.Parallel()

	if _, ok := renderMarkup(nil); ok {
		t.Fatalf("expected no markup for empty buttons")
	}

	markup, ok := renderMarkup([]attest.Button{
		{Label: "Verify", URL: "https://example.org/verify"},
		{Label: "Yes", Action: attest.ActionConfirm},
	})
	if !ok {
		t.Fatalf("expected markup")
	}
	if len(markup.InlineKeyboard) != 2 {
		t.Fatalf("expected two rows, got %d", len(markup.InlineKeyboard))
	}
	link := markup.InlineKeyboard[0][0]
	if link.URL == nil || *link.URL != "https://example.org/verify" {
		t.Fatalf("expected url button, got %+v", link)
	}
	confirm := markup.InlineKeyboard[1][0]
	if confirm.CallbackData == nil || *confirm.CallbackData != string(attest.ActionConfirm) {
		t.Fatalf("expected callback button, got %+v", confirm)
	}
}
