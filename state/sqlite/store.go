// Package sqlite persists runtime state snapshots in SQLite.
//
// The in-memory runtime stays authoritative; the store exists so a restarted
// daemon resumes from the last sealed block instead of genesis.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"xdao.co/poe/chain"
)

// Store holds one row per account balance, account nonce, and live claim,
// plus a single head row recording the chain position.
type Store struct {
	sqlDB *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS head (
  id           INTEGER PRIMARY KEY CHECK (id = 0),
  block_number INTEGER NOT NULL,
  head_cid     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS balances (
  account TEXT PRIMARY KEY,
  balance TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nonces (
  account TEXT PRIMARY KEY,
  nonce   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS claims (
  fingerprint TEXT PRIMARY KEY,
  owner       TEXT NOT NULL
);
`

// Open opens (creating if needed) a state store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSnapshot replaces the stored state with snap, atomically.
func (s *Store) SaveSnapshot(ctx context.Context, snap chain.Snapshot) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("state store is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"balances", "nonces", "claims"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for account, balance := range snap.Balances {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO balances (account, balance) VALUES (?, ?)`,
			string(account), strconv.FormatUint(uint64(balance), 10),
		); err != nil {
			return fmt.Errorf("insert balance: %w", err)
		}
	}
	for account, nonce := range snap.Nonces {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nonces (account, nonce) VALUES (?, ?)`,
			string(account), strconv.FormatUint(uint64(nonce), 10),
		); err != nil {
			return fmt.Errorf("insert nonce: %w", err)
		}
	}
	for fingerprint, owner := range snap.Claims {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claims (fingerprint, owner) VALUES (?, ?)`,
			string(fingerprint), string(owner),
		); err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO head (id, block_number, head_cid) VALUES (0, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET block_number = excluded.block_number, head_cid = excluded.head_cid`,
		int64(snap.BlockNumber), snap.HeadCID,
	); err != nil {
		return fmt.Errorf("upsert head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LoadSnapshot returns the stored state. found is false when the store has
// never been written, i.e. the node should start from genesis.
func (s *Store) LoadSnapshot(ctx context.Context) (snap chain.Snapshot, found bool, err error) {
	if s == nil || s.sqlDB == nil {
		return chain.Snapshot{}, false, fmt.Errorf("state store is not configured")
	}

	var blockNumber int64
	var headCID string
	row := s.sqlDB.QueryRowContext(ctx, `SELECT block_number, head_cid FROM head WHERE id = 0`)
	if err := row.Scan(&blockNumber, &headCID); err != nil {
		if err == sql.ErrNoRows {
			return chain.Snapshot{}, false, nil
		}
		return chain.Snapshot{}, false, fmt.Errorf("load head: %w", err)
	}
	snap.BlockNumber = chain.BlockNumber(blockNumber)
	snap.HeadCID = headCID

	snap.Balances = make(map[chain.AccountID]chain.Balance)
	if err := s.loadUint64Map(ctx, `SELECT account, balance FROM balances`, func(key string, v uint64) {
		snap.Balances[chain.AccountID(key)] = chain.Balance(v)
	}); err != nil {
		return chain.Snapshot{}, false, err
	}

	snap.Nonces = make(map[chain.AccountID]chain.Nonce)
	if err := s.loadUint64Map(ctx, `SELECT account, nonce FROM nonces`, func(key string, v uint64) {
		snap.Nonces[chain.AccountID(key)] = chain.Nonce(v)
	}); err != nil {
		return chain.Snapshot{}, false, err
	}

	snap.Claims = make(map[chain.Content]chain.AccountID)
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT fingerprint, owner FROM claims`)
	if err != nil {
		return chain.Snapshot{}, false, fmt.Errorf("load claims: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var fingerprint, owner string
		if err := rows.Scan(&fingerprint, &owner); err != nil {
			return chain.Snapshot{}, false, fmt.Errorf("scan claim: %w", err)
		}
		snap.Claims[chain.Content(fingerprint)] = chain.AccountID(owner)
	}
	if err := rows.Err(); err != nil {
		return chain.Snapshot{}, false, fmt.Errorf("iterate claims: %w", err)
	}

	return snap, true, nil
}

func (s *Store) loadUint64Map(ctx context.Context, query string, set func(key string, v uint64)) error {
	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("parse value %q: %w", raw, err)
		}
		set(key, v)
	}
	return rows.Err()
}
