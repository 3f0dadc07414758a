package attest

import (
	"fmt"
	"html"
	"net/url"

	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/token"
)

const telegramBaseURL = "https://t.me/"

// Links builds the URLs the flow hands out: the wallet-facing verify link,
// the deep link back into the chat, and explorer links for published units.
type Links struct {
	// BaseURL is the public base of the HTTP surface, e.g.
	// "https://attestation.example.org".
	BaseURL string
	// BotUsername is the chat bot name used for t.me deep links.
	BotUsername string
	// Testnet switches explorer links to the testnet explorer.
	Testnet bool
}

// Verify returns the wallet-facing verification URL for an address and the
// identity data that must survive the channel switch.
func (l Links) Verify(address string, id identity.Identity) string {
	return fmt.Sprintf("%s/verify/%s?%s", l.BaseURL, url.PathEscape(address), id.Values().Encode())
}

// DeepLink returns the t.me start link carrying the correlation token for a
// device address.
func (l Links) DeepLink(deviceAddress string) string {
	payload := token.Encode(map[string]string{"address": deviceAddress})
	return telegramBaseURL + l.BotUsername + "?start=" + payload
}

// Explorer returns the ledger explorer URL for a unit or address.
func (l Links) Explorer(unit string) string {
	prefix := ""
	if l.Testnet {
		prefix = "testnet"
	}
	return fmt.Sprintf("https://%sexplorer.obyte.org/%s", prefix, url.PathEscape(unit))
}

// attestationDataPreview renders the HTML summary shown before confirmation.
func (l Links) attestationDataPreview(id identity.Identity, address string) string {
	preview := "<b>Your data for attestation:</b>\n\n" +
		fmt.Sprintf("ID: %s\n", html.EscapeString(id.UserID)) +
		fmt.Sprintf("Username: %s", html.EscapeString(id.Username))
	if address != "" {
		preview += fmt.Sprintf("\nWallet address: <a href=%q>%s</a>", l.Explorer(address), html.EscapeString(address))
	}
	return preview
}
