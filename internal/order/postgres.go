package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Taump/attestation-telegram/internal/identity"
)

// Postgres implements Repository on pgx. The partial unique index on
// (user_id, username) WHERE status <> 'attested' is what enforces the single
// active order per identity; Create relies on it instead of an app-side lock.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Schema is applied by Migrate. Attested orders are history and never
// deleted, so only the active row is unique per identity.
const Schema = `
CREATE TABLE IF NOT EXISTS attestation_orders (
    id              BIGSERIAL PRIMARY KEY,
    user_id         TEXT NOT NULL,
    username        TEXT NOT NULL,
    wallet_address  TEXT,
    device_address  TEXT,
    status          TEXT NOT NULL DEFAULT 'pending',
    unit            TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS attestation_orders_active_identity
    ON attestation_orders (user_id, username)
    WHERE status <> 'attested';
`

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("order: migrate: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, username, wallet_address, device_address, status, unit, created_at, updated_at`

func (p *Postgres) FindActive(ctx context.Context, id identity.Identity) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM attestation_orders
		WHERE user_id = $1 AND username = $2 AND status <> 'attested'
		ORDER BY id DESC
		LIMIT 1`,
		id.UserID, id.Username)
	return scanOrder(row)
}

func (p *Postgres) Find(ctx context.Context, id identity.Identity, address string) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM attestation_orders
		WHERE user_id = $1 AND username = $2 AND wallet_address = $3
		ORDER BY id DESC
		LIMIT 1`,
		id.UserID, id.Username, address)
	return scanOrder(row)
}

func (p *Postgres) FindNewest(ctx context.Context, id identity.Identity) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM attestation_orders
		WHERE user_id = $1 AND username = $2
		ORDER BY id DESC
		LIMIT 1`,
		id.UserID, id.Username)
	return scanOrder(row)
}

func (p *Postgres) Create(ctx context.Context, id identity.Identity, address string) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO attestation_orders (user_id, username, wallet_address)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (user_id, username) WHERE status <> 'attested' DO NOTHING
		RETURNING `+orderColumns,
		id.UserID, id.Username, address)
	created, err := scanOrder(row)
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, ErrOrderNotFound) {
		return Order{}, err
	}
	// Lost the insert race: the active order already exists, reuse it.
	return p.FindActive(ctx, id)
}

func (p *Postgres) SetAddress(ctx context.Context, orderID int64, address string) error {
	return p.exec(ctx, `
		UPDATE attestation_orders
		SET wallet_address = $2, updated_at = now()
		WHERE id = $1`,
		orderID, address)
}

func (p *Postgres) SetDeviceAddress(ctx context.Context, orderID int64, deviceAddress string) error {
	return p.exec(ctx, `
		UPDATE attestation_orders
		SET device_address = $2, updated_at = now()
		WHERE id = $1`,
		orderID, deviceAddress)
}

func (p *Postgres) ClearAddress(ctx context.Context, orderID int64) error {
	current, err := p.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if current.Attested() {
		return ErrAlreadyAttested
	}
	if current.Address == "" {
		return ErrAddressNotFound
	}
	return p.exec(ctx, `
		UPDATE attestation_orders
		SET wallet_address = NULL, device_address = NULL, updated_at = now()
		WHERE id = $1 AND status <> 'attested'`,
		orderID)
}

func (p *Postgres) ClaimForPublish(ctx context.Context, orderID int64) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE attestation_orders
		SET status = 'publishing', updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		orderID)
	if err != nil {
		return fmt.Errorf("order: claim for publish: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := p.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		switch current.Status {
		case StatusAttested:
			return ErrAlreadyAttested
		case StatusPublishing:
			return ErrPublishInProgress
		}
		return ErrOrderNotFound
	}
	return nil
}

func (p *Postgres) ReleaseClaim(ctx context.Context, orderID int64) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE attestation_orders
		SET status = 'pending', updated_at = now()
		WHERE id = $1 AND status = 'publishing'`,
		orderID)
	if err != nil {
		return fmt.Errorf("order: release claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Nothing to roll back; only a missing order is an error.
		if _, getErr := p.Get(ctx, orderID); getErr != nil {
			return getErr
		}
	}
	return nil
}

func (p *Postgres) MarkAttested(ctx context.Context, orderID int64, unit string) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE attestation_orders
		SET status = 'attested', unit = $2, updated_at = now()
		WHERE id = $1 AND status <> 'attested'`,
		orderID, unit)
	if err != nil {
		return fmt.Errorf("order: mark attested: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already attested; look to distinguish.
		current, getErr := p.Get(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		if current.Attested() {
			return ErrAlreadyAttested
		}
		return ErrOrderNotFound
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, orderID int64) (Order, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM attestation_orders
		WHERE id = $1`,
		orderID)
	return scanOrder(row)
}

func (p *Postgres) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("order: exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o             Order
		walletAddress pgtype.Text
		deviceAddress pgtype.Text
		status        string
		unit          pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	err := row.Scan(&o.ID, &o.Identity.UserID, &o.Identity.Username, &walletAddress, &deviceAddress, &status, &unit, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("order: scan: %w", err)
	}
	o.Address = walletAddress.String
	o.Identity.DeviceAddress = deviceAddress.String
	o.DeviceAddress = deviceAddress.String
	o.Status = Status(status)
	o.Unit = unit.String
	o.CreatedAt = createdAt.Time
	o.UpdatedAt = updatedAt.Time
	return o, nil
}
