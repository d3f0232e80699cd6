package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/trinity-exchange/trinity-swapd/internal/chain"
)

// SQLiteStore is a durable order store. It keeps the same semantics as
// MemoryStore with orders surviving a daemon restart.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the order database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "trinityd.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS swap_orders (
		id TEXT PRIMARY KEY,
		user_address TEXT NOT NULL,
		recipient TEXT,
		from_token TEXT NOT NULL,
		to_token TEXT NOT NULL,
		from_amount TEXT NOT NULL,
		expected_amount TEXT NOT NULL,
		min_amount TEXT NOT NULL,
		from_network TEXT NOT NULL,
		to_network TEXT NOT NULL,
		secret_hash TEXT NOT NULL,
		secret TEXT,
		status TEXT NOT NULL,
		lock_tx_hash TEXT,
		execute_tx_hash TEXT,
		refund_tx_hash TEXT,
		failure_reason TEXT,
		consensus_required INTEGER DEFAULT 0,
		valid_proof_count INTEGER DEFAULT 0,
		proof_status TEXT,
		timelock INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		completed_at INTEGER DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_swap_orders_user ON swap_orders(user_address, created_at);
	CREATE INDEX IF NOT EXISTS idx_swap_orders_status ON swap_orders(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Create implements OrderStore.
func (s *SQLiteStore) Create(o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM swap_orders WHERE id = ?`, o.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if exists > 0 {
		return ErrOrderExists
	}
	return s.save(o)
}

// Get implements OrderStore.
func (s *SQLiteStore) Get(id string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(id)
}

// Update implements OrderStore.
func (s *SQLiteStore) Update(id string, fn func(*Order) error) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.save(o); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// ListByUser implements OrderStore.
func (s *SQLiteStore) ListByUser(userAddress string) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(selectColumns+` FROM swap_orders WHERE user_address = ? ORDER BY created_at DESC`, userAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PurgeCompletedBefore implements OrderStore.
func (s *SQLiteStore) PurgeCompletedBefore(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`DELETE FROM swap_orders WHERE status IN (?, ?, ?) AND completed_at > 0 AND completed_at < ?`,
		StatusExecuted, StatusRefunded, StatusFailed, cutoff.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orders: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close implements OrderStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, user_address, recipient, from_token, to_token,
	from_amount, expected_amount, min_amount, from_network, to_network,
	secret_hash, secret, status, lock_tx_hash, execute_tx_hash, refund_tx_hash,
	failure_reason, consensus_required, valid_proof_count, proof_status,
	timelock, created_at, updated_at, expires_at, completed_at`

type scannable interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStore) get(id string) (*Order, error) {
	row := s.db.QueryRow(selectColumns+` FROM swap_orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func scanOrder(row scannable) (*Order, error) {
	var (
		o                                 Order
		proofJSON                         sql.NullString
		createdAt, updatedAt, expiresAt   int64
		completedAt                       int64
		recipient, secret                 sql.NullString
		lockTx, execTx, refundTx, failure sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.UserAddress, &recipient, &o.FromToken, &o.ToToken,
		&o.FromAmount, &o.ExpectedAmount, &o.MinAmount, &o.FromNetwork, &o.ToNetwork,
		&o.SecretHash, &secret, &o.Status, &lockTx, &execTx, &refundTx,
		&failure, &o.ConsensusRequired, &o.ValidProofCount, &proofJSON,
		&o.Timelock, &createdAt, &updatedAt, &expiresAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Recipient = recipient.String
	o.Secret = secret.String
	o.LockTxHash = lockTx.String
	o.ExecuteTxHash = execTx.String
	o.RefundTxHash = refundTx.String
	o.FailureReason = failure.String
	o.CreatedAt = time.Unix(createdAt, 0)
	o.UpdatedAt = time.Unix(updatedAt, 0)
	o.ExpiresAt = time.Unix(expiresAt, 0)
	if completedAt > 0 {
		o.CompletedAt = time.Unix(completedAt, 0)
	}
	if proofJSON.Valid && proofJSON.String != "" {
		proofs := make(map[chain.Network]string)
		if err := json.Unmarshal([]byte(proofJSON.String), &proofs); err == nil {
			o.ProofStatus = proofs
		}
	}
	return &o, nil
}

func (s *SQLiteStore) save(o *Order) error {
	var proofJSON string
	if o.ProofStatus != nil {
		data, err := json.Marshal(o.ProofStatus)
		if err != nil {
			return fmt.Errorf("failed to marshal proof status: %w", err)
		}
		proofJSON = string(data)
	}

	var completedAt int64
	if !o.CompletedAt.IsZero() {
		completedAt = o.CompletedAt.Unix()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = o.CreatedAt
	}

	_, err := s.db.Exec(`
		INSERT INTO swap_orders (
			id, user_address, recipient, from_token, to_token,
			from_amount, expected_amount, min_amount, from_network, to_network,
			secret_hash, secret, status, lock_tx_hash, execute_tx_hash,
			refund_tx_hash, failure_reason, consensus_required,
			valid_proof_count, proof_status, timelock,
			created_at, updated_at, expires_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			secret = excluded.secret,
			status = excluded.status,
			lock_tx_hash = excluded.lock_tx_hash,
			execute_tx_hash = excluded.execute_tx_hash,
			refund_tx_hash = excluded.refund_tx_hash,
			failure_reason = excluded.failure_reason,
			consensus_required = excluded.consensus_required,
			valid_proof_count = excluded.valid_proof_count,
			proof_status = excluded.proof_status,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`,
		o.ID, o.UserAddress, o.Recipient, o.FromToken, o.ToToken,
		o.FromAmount, o.ExpectedAmount, o.MinAmount, o.FromNetwork, o.ToNetwork,
		o.SecretHash, o.Secret, o.Status, o.LockTxHash, o.ExecuteTxHash,
		o.RefundTxHash, o.FailureReason, o.ConsensusRequired,
		o.ValidProofCount, proofJSON, o.Timelock,
		o.CreatedAt.Unix(), o.UpdatedAt.Unix(), o.ExpiresAt.Unix(), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

var _ OrderStore = (*SQLiteStore)(nil)
