package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/edcore/school-admin-guard/internal/core/domain"
	"github.com/edcore/school-admin-guard/internal/core/port"
)

// AuditRepository is the durable, append-only system of record for audit
// entries. There is intentionally no update or delete statement in this
// file.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var auditColumns = []string{
	"id",
	"action",
	"resource",
	"resource_id",
	"actor_id",
	"actor_role",
	"ip_address",
	"outcome",
	"before_state",
	"after_state",
	"occurred_at",
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	before, err := marshalState(entry.Before)
	if err != nil {
		return fmt.Errorf("marshal before state: %w", err)
	}
	after, err := marshalState(entry.After)
	if err != nil {
		return fmt.Errorf("marshal after state: %w", err)
	}

	sql, args, err := r.builder.Insert("guard.audit_entries").
		Columns(auditColumns...).
		Values(
			entry.ID,
			entry.Action,
			string(entry.Resource),
			entry.ResourceID,
			entry.ActorID,
			string(entry.ActorRole),
			entry.IPAddress,
			string(entry.Outcome),
			before,
			after,
			entry.At,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, newest first.
func (r *AuditRepository) Query(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	builder := r.builder.Select(auditColumns...).
		From("guard.audit_entries").
		OrderBy("occurred_at DESC, id DESC")

	builder = applyAuditFilter(builder, filter)

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	sql, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// Count returns how many entries match the filter, ignoring pagination.
func (r *AuditRepository) Count(ctx context.Context, filter domain.AuditFilter) (int, error) {
	builder := r.builder.Select("count(*)").From("guard.audit_entries")
	builder = applyAuditFilter(builder, filter)

	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit count sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

func applyAuditFilter(builder squirrel.SelectBuilder, filter domain.AuditFilter) squirrel.SelectBuilder {
	if filter.Action != "" {
		builder = builder.Where(squirrel.Eq{"action": filter.Action})
	}
	if filter.ActorID != "" {
		builder = builder.Where(squirrel.Eq{"actor_id": filter.ActorID})
	}
	if filter.Resource != "" {
		builder = builder.Where(squirrel.Eq{"resource": string(filter.Resource)})
	}
	if filter.Outcome != "" {
		builder = builder.Where(squirrel.Eq{"outcome": string(filter.Outcome)})
	}
	if filter.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", filter.Search)
		builder = builder.Where(squirrel.Or{
			squirrel.ILike{"action": pattern},
			squirrel.ILike{"resource_id": pattern},
			squirrel.ILike{"actor_id": pattern},
		})
	}
	if !filter.From.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{"occurred_at": filter.From})
	}
	if !filter.To.IsZero() {
		builder = builder.Where(squirrel.LtOrEq{"occurred_at": filter.To})
	}
	return builder
}

func scanAuditEntry(row pgx.Row) (*domain.AuditEntry, error) {
	var (
		entry     domain.AuditEntry
		resource  string
		actorRole string
		outcome   string
		before    []byte
		after     []byte
	)
	if err := row.Scan(
		&entry.ID,
		&entry.Action,
		&resource,
		&entry.ResourceID,
		&entry.ActorID,
		&actorRole,
		&entry.IPAddress,
		&outcome,
		&before,
		&after,
		&entry.At,
	); err != nil {
		return nil, err
	}
	entry.Resource = domain.Resource(resource)
	entry.ActorRole = domain.Role(actorRole)
	entry.Outcome = domain.AuditOutcome(outcome)

	if len(before) > 0 {
		if err := json.Unmarshal(before, &entry.Before); err != nil {
			return nil, fmt.Errorf("unmarshal before state: %w", err)
		}
	}
	if len(after) > 0 {
		if err := json.Unmarshal(after, &entry.After); err != nil {
			return nil, fmt.Errorf("unmarshal after state: %w", err)
		}
	}
	return &entry, nil
}

func marshalState(state map[string]any) ([]byte, error) {
	if len(state) == 0 {
		return nil, nil
	}
	return json.Marshal(state)
}

var _ port.AuditStore = (*AuditRepository)(nil)
