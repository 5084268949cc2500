package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearbridge/support-sync/internal/domain"
)

// PostgresStore implements TicketStore on pgx. Conditional writes are
// single UPDATE statements whose WHERE clause carries the expected
// version and state preconditions, so the database evaluates the
// condition atomically; RowsAffected()==0 means the write lost.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const ticketColumns = `id, subject, description, priority, department, status, owner_id,
	assigned_agent_id, assigned_agent_label, sentiment_score, created_at,
	resolved_at, resolved_by_label, version`

func (s *PostgresStore) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
		INSERT INTO tickets (id, subject, description, priority, department, status, owner_id,
			assigned_agent_id, assigned_agent_label, sentiment_score, created_at,
			resolved_at, resolved_by_label, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	_, err := s.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Department,
		ticket.Status,
		ticket.OwnerID,
		ticket.AssignedAgentID,
		ticket.AssignedAgentLabel,
		ticket.SentimentScore,
		ticket.CreatedAt,
		ticket.ResolvedAt,
		ticket.ResolvedByLabel,
		ticket.Version,
	)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.fetch(ctx, s.pool, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) fetch(ctx context.Context, q queryer, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if ticket.Conversation, err = s.fetchConversation(ctx, q, id); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *PostgresStore) fetchConversation(ctx context.Context, q queryer, ticketID string) ([]domain.Message, error) {
	const query = `
		SELECT seq, sender, sender_label, body, created_at
		FROM ticket_messages WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.Sequence, &msg.Sender, &msg.SenderLabel, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildListQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range result {
		if result[i].Conversation, err = s.fetchConversation(ctx, s.pool, result[i].ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *PostgresStore) ApplyClaim(ctx context.Context, id string, expectedVersion int64, agentID, agentLabel string) (*domain.Ticket, error) {
	const query = `
		UPDATE tickets
		SET assigned_agent_id=$1, assigned_agent_label=$2, status=$3, version=version+1
		WHERE id=$4 AND version=$5 AND assigned_agent_id IS NULL AND status<>$6`
	return s.conditional(ctx, id, func(ctx context.Context, tx pgx.Tx) (int64, error) {
		cmd, err := tx.Exec(ctx, query,
			agentID, agentLabel, domain.TicketStatusInProgress,
			id, expectedVersion, domain.TicketStatusResolved)
		if err != nil {
			return 0, err
		}
		return cmd.RowsAffected(), nil
	})
}

func (s *PostgresStore) ApplyResolve(ctx context.Context, id string, expectedVersion int64, agentID string, resolvedByLabel string, at time.Time) (*domain.Ticket, error) {
	const query = `
		UPDATE tickets
		SET status=$1, resolved_at=$2, resolved_by_label=$3, version=version+1
		WHERE id=$4 AND version=$5 AND status=$6 AND assigned_agent_id=$7`
	return s.conditional(ctx, id, func(ctx context.Context, tx pgx.Tx) (int64, error) {
		cmd, err := tx.Exec(ctx, query,
			domain.TicketStatusResolved, at, resolvedByLabel,
			id, expectedVersion, domain.TicketStatusInProgress, agentID)
		if err != nil {
			return 0, err
		}
		return cmd.RowsAffected(), nil
	})
}

func (s *PostgresStore) AppendMessage(ctx context.Context, id string, expectedVersion int64, msg domain.Message) (*domain.Ticket, error) {
	const bump = `
		UPDATE tickets SET version=version+1
		WHERE id=$1 AND version=$2 AND status<>$3`
	const insert = `
		INSERT INTO ticket_messages (ticket_id, seq, sender, sender_label, body, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	return s.conditional(ctx, id, func(ctx context.Context, tx pgx.Tx) (int64, error) {
		cmd, err := tx.Exec(ctx, bump, id, expectedVersion, domain.TicketStatusResolved)
		if err != nil {
			return 0, err
		}
		if cmd.RowsAffected() == 0 {
			return 0, nil
		}
		if _, err := tx.Exec(ctx, insert, id, msg.Sequence, msg.Sender, msg.SenderLabel, msg.Text, msg.CreatedAt); err != nil {
			return 0, err
		}
		return 1, nil
	})
}

// conditional runs one conditional write inside a transaction and, when
// it commits a row, returns the resulting aggregate read in the same
// transaction. Zero affected rows maps to ErrNotFound or
// ErrVersionConflict depending on whether the ticket exists.
func (s *PostgresStore) conditional(ctx context.Context, id string, write func(context.Context, pgx.Tx) (int64, error)) (*domain.Ticket, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	affected, err := write(ctx, tx)
	if err != nil {
		return nil, mapPgError(err)
	}
	if affected == 0 {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			return nil, err
		}
		if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrVersionConflict
	}
	ticket, err := s.fetch(ctx, tx, id)
	if err != nil {
		return nil, mapPgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, mapPgError(err)
	}
	return ticket, nil
}

// mapPgError translates transaction-level conflicts into the store's
// conflict sentinel. Under repeatable read a write blocked on a row a
// concurrent transaction just committed aborts with SQLSTATE 40001
// instead of re-evaluating its WHERE clause to zero rows, and a lock
// cycle aborts with 40P01; both mean the same thing as a zero-row
// conditional write: the race was lost and nothing changed.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return ErrVersionConflict
		}
	}
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Department,
		&ticket.Status,
		&ticket.OwnerID,
		&ticket.AssignedAgentID,
		&ticket.AssignedAgentLabel,
		&ticket.SentimentScore,
		&ticket.CreatedAt,
		&ticket.ResolvedAt,
		&ticket.ResolvedByLabel,
		&ticket.Version,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func buildListQuery(filter TicketFilter) (string, []any) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_agent_id IS NULL")
	}
	if filter.AssignedAgentID != nil {
		args = append(args, *filter.AssignedAgentID)
		clauses = append(clauses, fmt.Sprintf("assigned_agent_id=$%d", len(args)))
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY created_at ASC", base, strings.Join(clauses, " AND "))
	return query, args
}
