// Package dedup implements the durable message idempotency store. A message
// id is admitted at most once within the retention window, surviving process
// restarts, so redelivered chat events never trigger a second calendar write.
package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/skylarkbot/skylark/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_messages (
	message_id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_processed_messages_created_at
	ON processed_messages(created_at);
`

// Store records processed message ids in sqlite with time-bounded retention.
type Store struct {
	db     *sql.DB
	window time.Duration

	// sweepThreshold triggers an opportunistic sweep once this many
	// admissions happened since the last one.
	sweepThreshold int

	mu            sync.Mutex
	sinceSweep    int
	sweepInFlight bool

	now func() time.Time // test hook
}

// Open creates or opens the store at path. window is how long admissions are
// remembered; threshold bounds how many admissions may pass between
// opportunistic sweeps.
func Open(path string, window time.Duration, threshold int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dedup dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open dedup db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init dedup schema: %w", err)
	}

	if threshold <= 0 {
		threshold = 2000
	}
	return &Store{
		db:             db,
		window:         window,
		sweepThreshold: threshold,
		now:            time.Now,
	}, nil
}

// Admit atomically records messageID and reports whether this is its first
// admission within the retention window. A storage error counts as "not
// admitted" (fail closed): dropping a message is recoverable through
// transport redelivery, a duplicate calendar event is not.
func (s *Store) Admit(messageID string) bool {
	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed_messages (message_id, created_at) VALUES (?, ?)",
		messageID, s.now().Unix(),
	)
	if err != nil {
		logger.ErrorCF("dedup", "Admit failed, dropping message", map[string]interface{}{
			"message_id": messageID,
			"error":      err.Error(),
		})
		return false
	}
	n, err := res.RowsAffected()
	if err != nil {
		logger.ErrorCF("dedup", "RowsAffected failed, dropping message", map[string]interface{}{
			"message_id": messageID,
			"error":      err.Error(),
		})
		return false
	}
	if n > 0 {
		s.maybeSweep()
	}
	return n > 0
}

// maybeSweep kicks a background sweep when enough admissions accumulated.
// The sweep runs outside the admission path so unrelated records are never
// blocked on the delete.
func (s *Store) maybeSweep() {
	s.mu.Lock()
	s.sinceSweep++
	due := s.sinceSweep >= s.sweepThreshold && !s.sweepInFlight
	if due {
		s.sinceSweep = 0
		s.sweepInFlight = true
	}
	s.mu.Unlock()

	if !due {
		return
	}
	go func() {
		defer func() {
			s.mu.Lock()
			s.sweepInFlight = false
			s.mu.Unlock()
		}()
		if _, err := s.Sweep(); err != nil {
			logger.ErrorCF("dedup", "Opportunistic sweep failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
}

// Sweep deletes records older than the retention window and returns how many
// went away.
func (s *Store) Sweep() (int64, error) {
	cutoff := s.now().Add(-s.window).Unix()
	res, err := s.db.Exec("DELETE FROM processed_messages WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep dedup records: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logger.InfoCF("dedup", "Swept expired records", map[string]interface{}{"count": n})
	}
	return n, nil
}

// Count returns the number of records currently retained.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM processed_messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count dedup records: %w", err)
	}
	return n, nil
}

// RunSweeper runs periodic sweeps on the given cron schedule until ctx is
// cancelled. Complements the opportunistic sweep for quiet deployments.
func (s *Store) RunSweeper(ctx context.Context, cronExpr string) {
	g := gronx.New()
	if !g.IsValid(cronExpr) {
		logger.ErrorCF("dedup", "Invalid sweep cron, sweeper disabled", map[string]interface{}{
			"cron": cronExpr,
		})
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := g.IsDue(cronExpr, s.now())
			if err != nil || !due {
				continue
			}
			if _, err := s.Sweep(); err != nil {
				logger.ErrorCF("dedup", "Scheduled sweep failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
