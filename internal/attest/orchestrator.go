package attest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Taump/attestation-telegram/internal/identity"
	"github.com/Taump/attestation-telegram/internal/messages"
	"github.com/Taump/attestation-telegram/internal/order"
	"github.com/Taump/attestation-telegram/internal/session"
	"github.com/Taump/attestation-telegram/internal/token"
	"github.com/Taump/attestation-telegram/internal/wallet"
)

// Orchestrator owns the order state machine. Each Handle method is one
// inbound event; methods may run concurrently, the repository serializes
// transitions per identity key.
type Orchestrator struct {
	repo      order.Repository
	sessions  session.Store
	publisher Publisher
	messenger Messenger
	pairer    Pairer
	validator wallet.Validator
	links     Links
	logger    *slog.Logger
	subs      subscribers
}

func New(log *slog.Logger, repo order.Repository, sessions session.Store, publisher Publisher, messenger Messenger, pairer Pairer, validator wallet.Validator, links Links) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		messenger: messenger,
		pairer:    pairer,
		validator: validator,
		links:     links,
		logger:    log.With(slog.String("component", "attest")),
	}
}

// Subscribe registers a callback fired after every successful attestation.
func (c *Orchestrator) Subscribe(fn func(AttestedEvent)) {
	c.subs.add(fn)
}

// HandleStart processes the /start command, with or without a deep-link
// payload. A payload carries the correlation token minted on the wallet side;
// a session hit makes the event equivalent to an address submission. Any
// token or session problem degrades to the plain welcome flow.
func (c *Orchestrator) HandleStart(ctx context.Context, id identity.Identity, payload string) (Reply, error) {
	var reply Reply
	reply.text(messages.Welcome)
	if err := id.Validate(); err != nil {
		reply.text(messages.UsernameNotFound)
		return reply, nil
	}

	deviceAddress, walletAddress := c.resolveStartSession(ctx, payload)
	if walletAddress == "" {
		reply.text(messages.AttestationCommand)
		return reply, nil
	}
	if !c.validator.IsWalletAddress(walletAddress) {
		reply.text(messages.InvalidWalletAddress)
		return reply, nil
	}

	if prior, err := c.repo.Find(ctx, id, walletAddress); err == nil && prior.Attested() {
		reply.text(messages.AlreadyAttestedWithUnit(c.links.Explorer(prior.Unit)))
		return reply, nil
	}

	o, err := c.repo.Create(ctx, id, "")
	if err != nil {
		return reply, fmt.Errorf("create order: %w", err)
	}
	if o.Address != walletAddress {
		if err := c.repo.SetAddress(ctx, o.ID, walletAddress); err != nil {
			return reply, fmt.Errorf("set address: %w", err)
		}
	}
	if deviceAddress != "" {
		if err := c.repo.SetDeviceAddress(ctx, o.ID, deviceAddress); err != nil {
			return reply, fmt.Errorf("bind device address: %w", err)
		}
	}

	reply.html(c.links.attestationDataPreview(id, walletAddress))
	reply.withButtons(messages.ConfirmQuestion,
		Button{Label: "Yes", Action: ActionConfirm},
		Button{Label: "No, I want to change", Action: ActionChange},
	)
	return reply, nil
}

// resolveStartSession decodes a deep-link payload and consumes the session it
// points at. Both results are empty when anything is off; the caller degrades
// to asking for the address directly.
func (c *Orchestrator) resolveStartSession(ctx context.Context, payload string) (deviceAddress, walletAddress string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ""
	}
	decoded, err := token.Decode(payload)
	if err != nil {
		c.logger.Warn("deep link token rejected", slog.Any("error", err))
		return "", ""
	}
	deviceAddress = decoded["address"]
	if deviceAddress == "" {
		return "", ""
	}
	walletAddress, ok, err := c.sessions.Take(ctx, deviceAddress)
	if err != nil {
		c.logger.Error("session lookup failed", slog.Any("error", err))
		return deviceAddress, ""
	}
	if !ok {
		c.logger.Info("session miss", slog.String("device_address", deviceAddress))
		return deviceAddress, ""
	}
	return deviceAddress, walletAddress
}

// HandleAttest processes the /attest command: create or reuse the active
// order and prompt for the next missing step.
func (c *Orchestrator) HandleAttest(ctx context.Context, id identity.Identity) (Reply, error) {
	var reply Reply
	if err := id.Validate(); err != nil {
		reply.text(messages.UsernameNotFound)
		return reply, nil
	}
	o, err := c.repo.Create(ctx, id, "")
	if err != nil {
		return reply, fmt.Errorf("create order: %w", err)
	}
	reply.html(c.links.attestationDataPreview(id, o.Address))
	if o.Address == "" {
		reply.text(messages.SendWallet)
	} else {
		reply.withButtons(messages.HaveToVerify, Button{Label: "Verify", URL: c.links.Verify(o.Address, id)})
		reply.text(messages.RemoveAddress)
	}
	return reply, nil
}

// HandleText processes a plain chat message. While an order awaits an
// address the text is treated as an address submission; otherwise the user
// is pointed at the step they are actually on.
func (c *Orchestrator) HandleText(ctx context.Context, id identity.Identity, text string) (Reply, error) {
	var reply Reply
	if err := id.Validate(); err != nil {
		reply.text(messages.UsernameNotFound)
		return reply, nil
	}
	active, err := c.repo.FindActive(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		reply.text(messages.CommandAttestationAgain)
		return reply, nil
	}
	if err != nil {
		return reply, fmt.Errorf("find active order: %w", err)
	}
	if active.Address == "" {
		return c.submitAddress(ctx, id, active, strings.TrimSpace(text))
	}
	reply.withButtons(messages.HaveToVerify, Button{Label: "Verify", URL: c.links.Verify(active.Address, id)})
	reply.text(messages.RemoveAddress)
	return reply, nil
}

func (c *Orchestrator) submitAddress(ctx context.Context, id identity.Identity, active order.Order, address string) (Reply, error) {
	var reply Reply
	if !c.validator.IsWalletAddress(address) {
		reply.text(messages.InvalidWalletAddress)
		return reply, nil
	}
	if prior, err := c.repo.Find(ctx, id, address); err == nil && prior.Attested() {
		reply.text(messages.AlreadyAttestedWithUnit(c.links.Explorer(prior.Unit)))
		return reply, nil
	}
	if err := c.repo.SetAddress(ctx, active.ID, address); err != nil {
		return reply, fmt.Errorf("set address: %w", err)
	}
	// A bound device gets the verify prompt on its own channel too.
	if active.DeviceAddress != "" {
		c.sendToDevice(ctx, active.DeviceAddress, messages.AskVerify(address))
	}
	reply.text(messages.AddressReceived)
	reply.withButtons(messages.HaveToVerify, Button{Label: "Verify", URL: c.links.Verify(address, id)})
	reply.text(messages.RemoveAddress)
	return reply, nil
}

// HandleConfirm processes the confirmation action. It claims the pending
// order before invoking the publisher, so a repeated or concurrent confirm
// returns the stored unit (or a wait notice) without publishing again. A
// publish failure releases the claim and leaves the order pending for retry.
func (c *Orchestrator) HandleConfirm(ctx context.Context, id identity.Identity) (Reply, error) {
	var reply Reply
	if err := id.Validate(); err != nil {
		reply.text(messages.UsernameNotFound)
		return reply, nil
	}
	active, err := c.repo.FindActive(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		if newest, nErr := c.repo.FindNewest(ctx, id); nErr == nil && newest.Attested() {
			reply.text(messages.AlreadyAttestedWithUnit(c.links.Explorer(newest.Unit)))
		} else {
			reply.text(messages.AttestationCommand)
		}
		return reply, nil
	}
	if err != nil {
		return reply, fmt.Errorf("find active order: %w", err)
	}
	if active.Address == "" {
		reply.text(messages.SendWallet)
		return reply, nil
	}

	// Claim the transition before touching the network; concurrent confirms
	// on the same order must not reach the publisher twice.
	switch err := c.repo.ClaimForPublish(ctx, active.ID); {
	case errors.Is(err, order.ErrAlreadyAttested):
		stored, getErr := c.repo.Get(ctx, active.ID)
		if getErr != nil {
			return reply, fmt.Errorf("load attested order: %w", getErr)
		}
		reply.html(c.unitMessage(stored.Unit))
		return reply, nil
	case errors.Is(err, order.ErrPublishInProgress):
		reply.text(messages.AttestationInProgress)
		return reply, nil
	case err != nil:
		return reply, fmt.Errorf("claim order for publish: %w", err)
	}

	unit, err := c.publisher.Publish(ctx, active.Address, id)
	if err != nil {
		c.logger.Error("publish failed", slog.Int64("order_id", active.ID), slog.Any("error", err))
		if rErr := c.repo.ReleaseClaim(ctx, active.ID); rErr != nil {
			c.logger.Error("claim release failed", slog.Int64("order_id", active.ID), slog.Any("error", rErr))
		}
		reply.text(messages.AttestationFailed)
		return reply, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if err := c.repo.MarkAttested(ctx, active.ID, unit); err != nil {
		return reply, fmt.Errorf("mark attested: %w", err)
	}

	c.logger.Info("order attested", slog.Int64("order_id", active.ID), slog.String("unit", unit))
	reply.html(c.unitMessage(unit))

	if active.DeviceAddress != "" {
		_ = c.sessions.Delete(ctx, active.DeviceAddress)
		c.sendToDevice(ctx, active.DeviceAddress, messages.AttestationUnit(c.links.Explorer(unit)))
	}

	attested := active
	attested.Status = order.StatusAttested
	attested.Unit = unit
	c.subs.notify(AttestedEvent{Order: attested, Unit: unit})
	return reply, nil
}

// HandleRemove processes the /remove command: clear the pending address, or
// explain why that is impossible.
func (c *Orchestrator) HandleRemove(ctx context.Context, id identity.Identity) (Reply, error) {
	var reply Reply
	if err := id.Validate(); err != nil {
		reply.text(messages.UsernameNotFound)
		return reply, nil
	}
	active, err := c.repo.FindActive(ctx, id)
	if errors.Is(err, order.ErrOrderNotFound) {
		if newest, nErr := c.repo.FindNewest(ctx, id); nErr == nil && newest.Attested() {
			reply.text(messages.RemoveAddressAlreadyAttested)
		} else {
			reply.text(messages.RemoveAddressNotFound)
		}
		return reply, nil
	}
	if err != nil {
		return reply, fmt.Errorf("find active order: %w", err)
	}

	switch err := c.repo.ClearAddress(ctx, active.ID); {
	case errors.Is(err, order.ErrAlreadyAttested):
		reply.text(messages.RemoveAddressAlreadyAttested)
	case errors.Is(err, order.ErrAddressNotFound):
		reply.text(messages.RemoveAddressNotFound)
	case err != nil:
		return reply, fmt.Errorf("clear address: %w", err)
	default:
		if active.DeviceAddress != "" {
			_ = c.sessions.Delete(ctx, active.DeviceAddress)
		}
		reply.text(messages.SendWallet)
	}
	return reply, nil
}

// HandleDevicePaired greets a freshly paired wallet device.
func (c *Orchestrator) HandleDevicePaired(ctx context.Context, deviceAddress string) {
	c.sendToDevice(ctx, deviceAddress, messages.Welcome, messages.AskAddress)
}

// HandleWalletVerified runs when the pairing channel has verified that the
// device controls walletAddress: stash the address in the session bridge and
// send the deep link that carries the flow back into the chat.
func (c *Orchestrator) HandleWalletVerified(ctx context.Context, deviceAddress, walletAddress string) error {
	if !c.validator.IsWalletAddress(walletAddress) {
		c.sendToDevice(ctx, deviceAddress, messages.InvalidWalletAddress)
		return nil
	}
	if err := c.sessions.Put(ctx, deviceAddress, walletAddress); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	c.sendToDevice(ctx, deviceAddress,
		messages.WalletVerified(walletAddress),
		messages.ContinueInChat(c.links.DeepLink(deviceAddress)),
	)
	return nil
}

// VerifyRedirect backs GET /verify/{address}: on success it returns the
// pairing URL carrying the verify data; otherwise one of the classified
// errors for the HTTP layer to map.
func (c *Orchestrator) VerifyRedirect(ctx context.Context, address string, values url.Values) (string, error) {
	id, err := identity.FromValues(values)
	if err != nil || !c.validator.IsWalletAddress(address) {
		return "", ErrInvalidData
	}
	o, err := c.repo.Find(ctx, id, address)
	if errors.Is(err, order.ErrOrderNotFound) {
		return "", order.ErrOrderNotFound
	}
	if err != nil {
		return "", fmt.Errorf("find order: %w", err)
	}
	if o.Attested() {
		return "", order.ErrAlreadyAttested
	}
	return c.pairer.PairingURLWithData(address, id)
}

// PairingRedirect backs GET /pairing.
func (c *Orchestrator) PairingRedirect() (string, error) {
	return c.pairer.PairingURL()
}

func (c *Orchestrator) unitMessage(unit string) string {
	explorer := c.links.Explorer(unit)
	return fmt.Sprintf("Attestation unit: <a href=%q>%s</a>", explorer, unit)
}

func (c *Orchestrator) sendToDevice(ctx context.Context, deviceAddress string, texts ...string) {
	if c.messenger == nil || deviceAddress == "" {
		return
	}
	for _, text := range texts {
		if err := c.messenger.SendToDevice(ctx, deviceAddress, text); err != nil {
			c.logger.Error("device message failed", slog.String("device_address", deviceAddress), slog.Any("error", err))
		}
	}
}
