package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/glimpse/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
)

func TestMapErrorNil(t *testing.T) {
	got := repository.MapError(nil, errNotFound, errDuplicate)
	if got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}

func TestMapErrorNotFound(t *testing.T) {
	got := repository.MapError(sql.ErrNoRows, errNotFound, errDuplicate)
	if !errors.Is(got, errNotFound) {
		t.Errorf("MapError(ErrNoRows) = %v, want %v", got, errNotFound)
	}
}

func TestMapErrorDuplicate(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505"}
	got := repository.MapError(pgErr, errNotFound, errDuplicate)
	if !errors.Is(got, errDuplicate) {
		t.Errorf("MapError(PgError 23505) = %v, want %v", got, errDuplicate)
	}
}

func TestMapErrorPassthrough(t *testing.T) {
	original := errors.New("some other error")
	got := repository.MapError(original, errNotFound, errDuplicate)
	if got != original {
		t.Errorf("MapError(other) = %v, want %v", got, original)
	}
}

func TestMapErrorPgNonDuplicate(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503"}
	got := repository.MapError(pgErr, errNotFound, errDuplicate)
	if got != pgErr {
		t.Errorf("MapError(PgError 23503) should pass through, got %v", got)
	}
}

func TestMapErrorCheckViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "batches_confidence_threshold_check"}
	got := repository.MapError(pgErr, errNotFound, errDuplicate)
	if !errors.Is(got, repository.ErrConstraint) {
		t.Fatalf("MapError(PgError 23514) = %v, want ErrConstraint", got)
	}
	if !strings.Contains(got.Error(), "batches_confidence_threshold_check") {
		t.Errorf("error %q missing constraint name", got)
	}
}

type affected int64

func (a affected) LastInsertId() (int64, error) { return 0, nil }
func (a affected) RowsAffected() (int64, error) { return int64(a), nil }

type recordingExecutor struct {
	calls [][]any
	rows  func(call int) int64
}

func (e *recordingExecutor) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	e.calls = append(e.calls, args)
	return affected(e.rows(len(e.calls) - 1)), nil
}

func TestExecEach(t *testing.T) {
	items := []string{"a", "b", "c"}
	args := func(i int, item string) []any { return []any{item, i} }

	t.Run("all rows", func(t *testing.T) {
		exec := &recordingExecutor{rows: func(int) int64 { return 1 }}
		if err := repository.ExecEach(context.Background(), exec, "INSERT", items, args); err != nil {
			t.Fatalf("ExecEach failed: %v", err)
		}
		if len(exec.calls) != 3 {
			t.Fatalf("calls = %d, want 3", len(exec.calls))
		}
		if exec.calls[2][0] != "c" || exec.calls[2][1] != 2 {
			t.Errorf("third call args = %v", exec.calls[2])
		}
	})

	t.Run("stops at first unaffected row", func(t *testing.T) {
		exec := &recordingExecutor{rows: func(call int) int64 {
			if call == 1 {
				return 0
			}
			return 1
		}}
		err := repository.ExecEach(context.Background(), exec, "INSERT", items, args)
		if !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("err = %v, want sql.ErrNoRows", err)
		}
		if !strings.Contains(err.Error(), "row 1") {
			t.Errorf("err %q missing row index", err)
		}
		if len(exec.calls) != 2 {
			t.Errorf("calls = %d, want 2", len(exec.calls))
		}
	})
}

type txLog struct {
	events      []string
	rollbackErr error
}

type connector struct{ log *txLog }

func (c connector) Connect(context.Context) (driver.Conn, error) { return conn(c), nil }
func (c connector) Driver() driver.Driver                        { return nil }

type conn struct{ log *txLog }

func (c conn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c conn) Close() error                        { return nil }
func (c conn) Begin() (driver.Tx, error)           { return tx(c), nil }

type tx struct{ log *txLog }

func (t tx) Commit() error {
	t.log.events = append(t.log.events, "commit")
	return nil
}

func (t tx) Rollback() error {
	t.log.events = append(t.log.events, "rollback")
	return t.log.rollbackErr
}

func TestWithTx(t *testing.T) {
	errInsert := errors.New("insert batch")
	errRollback := errors.New("connection lost")

	tests := []struct {
		name        string
		fnErr       error
		rollbackErr error
		wantEvents  string
	}{
		{name: "commit", wantEvents: "commit"},
		{name: "rollback on failure", fnErr: errInsert, wantEvents: "rollback"},
		{name: "rollback failure joined", fnErr: errInsert, rollbackErr: errRollback, wantEvents: "rollback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &txLog{rollbackErr: tt.rollbackErr}
			db := sql.OpenDB(connector{log})
			defer db.Close()

			got, err := repository.WithTx(context.Background(), db, func(*sql.Tx) (int, error) {
				return 7, tt.fnErr
			})

			if events := strings.Join(log.events, ","); events != tt.wantEvents {
				t.Errorf("events = %q, want %q", events, tt.wantEvents)
			}

			if tt.fnErr == nil {
				if err != nil || got != 7 {
					t.Fatalf("WithTx() = (%d, %v), want (7, nil)", got, err)
				}
				return
			}

			if got != 0 {
				t.Errorf("result = %d, want zero on failure", got)
			}
			if !errors.Is(err, tt.fnErr) {
				t.Errorf("err = %v, want %v", err, tt.fnErr)
			}
			if tt.rollbackErr != nil && !errors.Is(err, tt.rollbackErr) {
				t.Errorf("err = %v, missing rollback error", err)
			}
		})
	}
}
