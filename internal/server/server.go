// Package server exposes the wallet-facing HTTP surface: the verify and
// pairing redirects the chat hands out, and the event webhooks the wallet
// bridge posts back on pairing and address verification.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Taump/attestation-telegram/internal/attest"
	"github.com/Taump/attestation-telegram/internal/order"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	codeInvalidData     = "INVALID_DATA"
	codeAlreadyAttested = "ORDER_ALREADY_ATTESTED"
	codeOrderNotFound   = "ORDER_NOT_FOUND"
	codeUnauthorized    = "UNAUTHORIZED"
	codeUnknownError    = "UNKNOWN_ERROR"
)

type Server struct {
	echo        *echo.Echo
	core        *attest.Orchestrator
	logger      *slog.Logger
	eventsToken string
}

// New builds the HTTP surface. eventsToken, when non-empty, is required as a
// bearer token on the /events webhooks the wallet bridge posts to.
func New(log *slog.Logger, core *attest.Orchestrator, eventsToken string) *Server {
	if log == nil {
		log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:        e,
		core:        core,
		logger:      log.With(slog.String("component", "server")),
		eventsToken: eventsToken,
	}
	e.GET("/verify/:address", s.Verify)
	e.GET("/pairing", s.Pairing)

	events := e.Group("/events", s.requireEventsToken)
	events.POST("/device-paired", s.DevicePaired)
	events.POST("/wallet-verified", s.WalletVerified)
	return s
}

// Verify validates the address and identity data, finds the matching order
// and redirects to a pairing URL carrying the verify data.
func (s *Server) Verify(c echo.Context) error {
	address := c.Param("address")
	redirect, err := s.core.VerifyRedirect(c.Request().Context(), address, c.QueryParams())
	if err != nil {
		code := classify(err)
		if code == codeUnknownError {
			s.logger.Error("verify failed", slog.String("address", address), slog.Any("error", err))
		}
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: code})
	}
	return c.Redirect(http.StatusFound, redirect)
}

// Pairing redirects to a fresh pairing URL.
func (s *Server) Pairing(c echo.Context) error {
	redirect, err := s.core.PairingRedirect()
	if err != nil {
		s.logger.Error("pairing url failed", slog.Any("error", err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: codeUnknownError})
	}
	return c.Redirect(http.StatusFound, redirect)
}

type devicePairedRequest struct {
	DeviceAddress string `json:"device_address"`
}

// DevicePaired is posted by the wallet bridge when a device pairs with the
// attestation bot; the device gets the welcome prompt on its own channel.
func (s *Server) DevicePaired(c echo.Context) error {
	var req devicePairedRequest
	if err := c.Bind(&req); err != nil || req.DeviceAddress == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: codeInvalidData})
	}
	s.core.HandleDevicePaired(c.Request().Context(), req.DeviceAddress)
	return c.NoContent(http.StatusNoContent)
}

type walletVerifiedRequest struct {
	DeviceAddress string `json:"device_address"`
	WalletAddress string `json:"wallet_address"`
}

// WalletVerified is posted by the wallet bridge once the device has proven
// control of the wallet address; the orchestrator bridges the result back
// into the chat via the session store and a deep link.
func (s *Server) WalletVerified(c echo.Context) error {
	var req walletVerifiedRequest
	if err := c.Bind(&req); err != nil || req.DeviceAddress == "" || req.WalletAddress == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: codeInvalidData})
	}
	if err := s.core.HandleWalletVerified(c.Request().Context(), req.DeviceAddress, req.WalletAddress); err != nil {
		s.logger.Error("wallet verified event failed", slog.String("device_address", req.DeviceAddress), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: codeUnknownError})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) requireEventsToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.eventsToken == "" {
			return next(c)
		}
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer "+s.eventsToken {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: codeUnauthorized})
		}
		return next(c)
	}
}

func classify(err error) string {
	switch {
	case errors.Is(err, attest.ErrInvalidData), errors.Is(err, attest.ErrInvalidAddress):
		return codeInvalidData
	case errors.Is(err, order.ErrAlreadyAttested):
		return codeAlreadyAttested
	case errors.Is(err, order.ErrOrderNotFound):
		return codeOrderNotFound
	default:
		return codeUnknownError
	}
}

// Start serves until the listener fails; Shutdown stops it.
func (s *Server) Start(addr string) error {
	s.logger.Info("http listen", slog.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
