package history

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var ledgerDDL string

// ledgerVersion is stored in PRAGMA user_version; bump it with schema.sql.
const ledgerVersion = 1

// ErrLedgerVersion means history.db was written by another convrt release.
var ErrLedgerVersion = errors.New("history ledger version mismatch")

// prepareLedger creates the runs table on a fresh database and refuses one
// whose layout this build does not know.
func (s *Store) prepareLedger(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read history ledger version: %w", err)
	}
	switch version {
	case ledgerVersion:
		return nil
	case 0:
		return s.createLedger(ctx)
	default:
		return fmt.Errorf("%w: %s has version %d, this build writes %d (move it aside to start a new history)",
			ErrLedgerVersion, s.path, version, ledgerVersion)
	}
}

func (s *Store) createLedger(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history ledger setup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, ledgerDDL); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	// PRAGMA does not accept bound parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", ledgerVersion)); err != nil {
		return fmt.Errorf("stamp history ledger version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history ledger setup: %w", err)
	}
	return nil
}
