package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
	"github.com/edcore/school-admin-guard/internal/repository"
)

// DeviceRepository implements port.DeviceStore for PostgreSQL. Records
// are keyed by (account, fingerprint).
type DeviceRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewDeviceRepository constructs a DeviceRepository.
func NewDeviceRepository(exec pgExecutor) *DeviceRepository {
	return &DeviceRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var deviceColumns = []string{
	"fingerprint",
	"account",
	"display_name",
	"browser",
	"os",
	"ip_address",
	"trusted",
	"first_seen",
	"last_used",
}

// Get fetches a device record by account and fingerprint.
func (r *DeviceRepository) Get(ctx context.Context, account, fingerprint string) (*domain.TrustedDevice, error) {
	sql, args, err := r.builder.Select(deviceColumns...).
		From("guard.trusted_devices").
		Where(squirrel.Eq{"account": account, "fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select device sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sql, args...)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select device: %w", err)
	}
	return device, nil
}

// Upsert inserts or refreshes a device record. Trust is deliberately NOT
// part of the update set: repeated sightings refresh metadata only, and
// trust can flip solely through SetTrusted.
func (r *DeviceRepository) Upsert(ctx context.Context, device domain.TrustedDevice) error {
	sql, args, err := r.builder.Insert("guard.trusted_devices").
		Columns(deviceColumns...).
		Values(
			device.Fingerprint,
			device.Account,
			device.DisplayName,
			device.Browser,
			device.OS,
			device.IPAddress,
			device.Trusted,
			device.FirstSeen,
			device.LastUsed,
		).
		Suffix(`ON CONFLICT (account, fingerprint) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			browser = EXCLUDED.browser,
			os = EXCLUDED.os,
			ip_address = EXCLUDED.ip_address,
			last_used = EXCLUDED.last_used`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert device sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

// SetTrusted flips the trust flag for a device.
func (r *DeviceRepository) SetTrusted(ctx context.Context, account, fingerprint string, trusted bool) error {
	sql, args, err := r.builder.Update("guard.trusted_devices").
		Set("trusted", trusted).
		Where(squirrel.Eq{"account": account, "fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update device sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update device trust: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a device record.
func (r *DeviceRepository) Delete(ctx context.Context, account, fingerprint string) error {
	sql, args, err := r.builder.Delete("guard.trusted_devices").
		Where(squirrel.Eq{"account": account, "fingerprint": fingerprint}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete device sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListByAccount returns every device seen for an account, most recently
// used first.
func (r *DeviceRepository) ListByAccount(ctx context.Context, account string) ([]domain.TrustedDevice, error) {
	sql, args, err := r.builder.Select(deviceColumns...).
		From("guard.trusted_devices").
		Where(squirrel.Eq{"account": account}).
		OrderBy("last_used DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list devices sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defer rows.Close()

	var devices []domain.TrustedDevice
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate devices: %w", err)
	}
	return devices, nil
}

func scanDevice(row pgx.Row) (*domain.TrustedDevice, error) {
	var device domain.TrustedDevice
	if err := row.Scan(
		&device.Fingerprint,
		&device.Account,
		&device.DisplayName,
		&device.Browser,
		&device.OS,
		&device.IPAddress,
		&device.Trusted,
		&device.FirstSeen,
		&device.LastUsed,
	); err != nil {
		return nil, err
	}
	return &device, nil
}

var _ port.DeviceStore = (*DeviceRepository)(nil)
