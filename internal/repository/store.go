package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Postgres error codes mapped by mapError.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// Store groups the repositories and runs multi-step writes atomically.
type Store interface {
	Users() UserRepository
	Tickets() TicketRepository
	Comments() CommentRepository
	StatusLogs() StatusLogRepository
	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Calling WithinTx on a transactional Store reuses the transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the subset of *pgxpool.Pool the store needs.
type PgxPool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type postgresStore struct {
	pool PgxPool
	db   DBTX
	inTx bool
}

// NewPostgresStore returns a Store backed by the pgx pool.
func NewPostgresStore(pool PgxPool) Store {
	return &postgresStore{pool: pool, db: pool}
}

func (s *postgresStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

func (s *postgresStore) Tickets() TicketRepository {
	return &ticketRepository{db: s.db}
}

func (s *postgresStore) Comments() CommentRepository {
	return &commentRepository{db: s.db}
}

func (s *postgresStore) StatusLogs() StatusLogRepository {
	return &statusLogRepository{db: s.db}
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(&postgresStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgInvalidTextRepr:
			// A malformed or dangling id cannot reference an existing row.
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.Message)
		}
	}
	return err
}
