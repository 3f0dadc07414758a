package attest

import (
	"strings"
	"testing"

	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/token"
)

func TestLinks(t *testing.T) {
	t.Parallel()

	links := Links{BaseURL: "https://attest.example.org", BotUsername: "attest_bot"}
	id := identity.Identity{UserID: "42", Username: "alice"}

	verify := links.Verify("ADDR1", id)
	if !strings.HasPrefix(verify, "https://attest.example.org/verify/ADDR1?") {
		t.Fatalf("unexpected verify url: %s", verify)
	}
	if !strings.Contains(verify, "userId=42") || !strings.Contains(verify, "username=alice") {
		t.Fatalf("verify url missing identity data: %s", verify)
	}

	deep := links.DeepLink("DEVICE1")
	payload := strings.TrimPrefix(deep, "https://t.me/attest_bot?start=")
	if payload == deep {
		t.Fatalf("unexpected deep link: %s", deep)
	}
	decoded, err := token.Decode(payload)
	if err != nil {
		t.Fatalf("deep link payload must decode: %v", err)
	}
	if decoded["address"] != "DEVICE1" {
		t.Fatalf("unexpected payload: %v", decoded)
	}

	if got := links.Explorer("unit-1"); got != "https://explorer.obyte.org/unit-1" {
		t.Fatalf("unexpected explorer url: %s", got)
	}
	links.Testnet = true
	if got := links.Explorer("unit-1"); got != "https://testnetexplorer.obyte.org/unit-1" {
		t.Fatalf("unexpected testnet explorer url: %s", got)
	}
}

func TestAttestationDataPreviewEscapesHTML(t *testing.T) {
	t.Parallel()

	links := Links{}
	preview := links.attestationDataPreview(identity.Identity{UserID: "42", Username: "<script>"}, "")
	if strings.Contains(preview, "<script>") {
		t.Fatalf("username not escaped: %s", preview)
	}
	if !strings.Contains(preview, "&lt;script&gt;") {
		t.Fatalf("expected escaped username: %s", preview)
	}
}
