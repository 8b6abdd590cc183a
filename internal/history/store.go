package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/coco-ai/tool-service/pkg/tool"
)

// Record is one persisted tool execution.
type Record struct {
	ID            string    `json:"id"`
	ToolName      string    `json:"tool_name"`
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	ExecutionTime float64   `json:"execution_time"`
	ExecutedAt    time.Time `json:"executed_at"`
}

// Store persists execution records to SQLite. Writes go through a buffered
// channel so recording never blocks a dispatch.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	writes  chan Record
	barrier chan chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

const writeBuffer = 256

// NewStore opens (or creates) the history database at path.
func NewStore(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  logger,
		writes:  make(chan Record, writeBuffer),
		barrier: make(chan chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.wg.Add(1)
	go s.writeLoop()

	logger.Info().Str("path", path).Msg("History store initialized")
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS executions (
			id TEXT PRIMARY KEY,
			tool_name TEXT NOT NULL,
			success INTEGER NOT NULL,
			message TEXT NOT NULL,
			execution_time REAL NOT NULL,
			executed_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_executed_at ON executions(executed_at);
		CREATE INDEX IF NOT EXISTS idx_executions_tool ON executions(tool_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ToolExecuted queues a record for persistence. Implements tool.Observer.
// The record is dropped with a warning if the write buffer is full.
func (s *Store) ToolExecuted(rec tool.Execution) {
	id, err := gonanoid.New()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to generate record ID")
		return
	}

	record := Record{
		ID:            id,
		ToolName:      rec.ToolName,
		Success:       rec.Success,
		Message:       rec.Message,
		ExecutionTime: rec.ExecutionTime,
		ExecutedAt:    rec.Timestamp,
	}

	select {
	case s.writes <- record:
	default:
		s.logger.Warn().Str("tool", rec.ToolName).Msg("History write buffer full, dropping record")
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case record, ok := <-s.writes:
			if !ok {
				return
			}
			s.insert(record)
		case done := <-s.barrier:
			s.drain()
			close(done)
		}
	}
}

// drain applies every record already sitting in the queue.
func (s *Store) drain() {
	for {
		select {
		case record, ok := <-s.writes:
			if !ok {
				return
			}
			s.insert(record)
		default:
			return
		}
	}
}

func (s *Store) insert(record Record) {
	_, err := s.db.Exec(
		"INSERT INTO executions (id, tool_name, success, message, execution_time, executed_at) VALUES (?, ?, ?, ?, ?, ?)",
		record.ID, record.ToolName, boolToInt(record.Success), record.Message,
		record.ExecutionTime, record.ExecutedAt.UnixMilli(),
	)
	if err != nil {
		s.logger.Warn().Err(err).Str("tool", record.ToolName).Msg("Failed to persist execution record")
	}
}

// Recent returns the most recent records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		"SELECT id, tool_name, success, message, execution_time, executed_at FROM executions ORDER BY executed_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var r Record
		var success int
		var executedAt int64
		if err := rows.Scan(&r.ID, &r.ToolName, &success, &r.Message, &r.ExecutionTime, &executedAt); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.ExecutedAt = time.UnixMilli(executedAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

// Count returns the total number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM executions").Scan(&n)
	return n, err
}

// PruneOlderThan deletes records older than the given number of days and
// returns how many were removed.
func (s *Store) PruneOlderThan(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -days).UnixMilli()

	result, err := s.db.Exec("DELETE FROM executions WHERE executed_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Flush blocks until every record queued before the call has been applied.
func (s *Store) Flush() {
	done := make(chan struct{})
	s.barrier <- done
	<-done
}

// Close drains pending writes and closes the database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.writes)
		s.wg.Wait()
		err = s.db.Close()
		s.logger.Info().Msg("History store closed")
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
