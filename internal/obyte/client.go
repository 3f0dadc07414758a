// Package obyte adapts the ledger-side collaborators: publishing attestation
// profiles, messaging paired devices and building pairing URLs. All calls go
// through the headless wallet bridge's HTTP API; the bridge owns keys and
// ledger connectivity.
package obyte

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/token"
)

type Config struct {
	// BridgeURL is the base URL of the headless wallet bridge.
	BridgeURL string
	// DevicePubKey and Hub form the pairing address of the service's
	// wallet device.
	DevicePubKey string
	Hub          string
	// PairingSecret is the permanent secret for plain pairing links.
	PairingSecret string
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		logger: log.With(slog.String("component", "obyte")),
	}
}

type attestRequest struct {
	Address string            `json:"address"`
	Profile identity.Identity `json:"profile"`
}

type attestResponse struct {
	Unit string `json:"unit"`
}

// Publish posts an attestation profile for the address and returns the unit
// id of the attestation transaction.
func (c *Client) Publish(ctx context.Context, walletAddress string, id identity.Identity) (string, error) {
	var resp attestResponse
	if err := c.post(ctx, "/attest", attestRequest{Address: walletAddress, Profile: id}, &resp); err != nil {
		return "", err
	}
	if resp.Unit == "" {
		return "", fmt.Errorf("obyte: bridge returned no unit")
	}
	return resp.Unit, nil
}

type deviceMessageRequest struct {
	DeviceAddress string `json:"device_address"`
	Text          string `json:"text"`
}

// SendToDevice delivers a text message to a paired wallet device.
func (c *Client) SendToDevice(ctx context.Context, deviceAddress, text string) error {
	return c.post(ctx, "/device/message", deviceMessageRequest{DeviceAddress: deviceAddress, Text: text}, nil)
}

// PairingURL returns a pairing link. With a permanent secret configured the
// link is reusable; otherwise each call mints a one-time secret.
func (c *Client) PairingURL() (string, error) {
	if c.cfg.DevicePubKey == "" || c.cfg.Hub == "" {
		return "", fmt.Errorf("obyte: pairing address not configured")
	}
	secret := c.cfg.PairingSecret
	if secret == "" {
		secret = uuid.NewString()
	}
	return fmt.Sprintf("obyte:%s@%s#%s", c.cfg.DevicePubKey, c.cfg.Hub, secret), nil
}

// PairingURLWithData returns a pairing link whose one-time secret carries the
// verify data, so the wallet-side pairing event can be correlated back to the
// (address, identity) pair.
func (c *Client) PairingURLWithData(walletAddress string, id identity.Identity) (string, error) {
	if c.cfg.DevicePubKey == "" || c.cfg.Hub == "" {
		return "", fmt.Errorf("obyte: pairing address not configured")
	}
	secret := token.Encode(map[string]string{
		"address":  walletAddress,
		"userId":   id.UserID,
		"username": id.Username,
	})
	return fmt.Sprintf("obyte:%s@%s#%s", c.cfg.DevicePubKey, c.cfg.Hub, secret), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("obyte: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BridgeURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("obyte: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("obyte: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("obyte: %s: unexpected status %d: %s", path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("obyte: decode response: %w", err)
	}
	return nil
}
