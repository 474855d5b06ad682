package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Status values for a generation record.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is one row of the generations table.
type Record struct {
	ID           int64     // Auto-incremented primary key
	RequestID    string    // Correlates with the lease/request id
	Model        string    // Model id used
	DeviceIndex  int       // Index of the device that ran the generation
	DeviceName   string    // Device display name
	Width        int       // Requested image width
	Height       int       // Requested image height
	Steps        int       // Inference steps
	Seed         int64     // Seed actually used
	Status       string    // "success" or "error"
	ErrorMessage string    // Failure detail, empty on success
	DurationMS   int64     // Generation wall time in milliseconds
	CreatedAt    time.Time // Insertion timestamp
}

// Store owns the history database connection and provides the insert
// and query surface. Writes go through a buffered channel and a single
// background goroutine so the request path never blocks on disk.
type Store struct {
	db *sql.DB

	writeChan chan Record
	pending   atomic.Int64
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}

	mu       sync.Mutex
	writeErr error // last async insert failure, surfaced on Close
}

// writeBuffer is the pending-insert capacity before Append degrades to
// dropping records.
const writeBuffer = 256

// StoreConfig configures Open.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string
	// MigrationsPath is the golang-migrate source URL. Empty means
	// bootstrap the schema directly (used by tests).
	MigrationsPath string
}

// Open opens (creating if necessary) the history database, applies the
// schema, and starts the background writer.
func Open(cfg StoreConfig) (*Store, error) {
	db, err := NewSQLiteConnection(DefaultConnectionConfig(cfg.Path))
	if err != nil {
		return nil, err
	}

	if cfg.MigrationsPath != "" {
		err = MigrateUp(db, cfg.MigrationsPath)
	} else {
		err = Bootstrap(db)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:        db,
		writeChan: make(chan Record, writeBuffer),
		closed:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.processWrites()
	return s, nil
}

// Append queues a record for insertion without blocking. If the buffer
// is full the record is dropped; history is advisory and must never
// stall a generation.
func (s *Store) Append(rec Record) {
	select {
	case <-s.closed:
		return
	default:
	}

	select {
	case s.writeChan <- rec:
		s.pending.Add(1)
	default:
		// Buffer full. Dropping is preferable to blocking the
		// request path.
	}
}

// processWrites is the single background writer goroutine.
func (s *Store) processWrites() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			// Drain whatever is already buffered, then stop.
			for {
				select {
				case rec := <-s.writeChan:
					s.insert(rec)
				default:
					return
				}
			}
		case rec := <-s.writeChan:
			s.insert(rec)
		}
	}
}

func (s *Store) insert(rec Record) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO generations
			(request_id, model, device_index, device_name, width, height,
			 steps, seed, status, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Model, rec.DeviceIndex, rec.DeviceName,
		rec.Width, rec.Height, rec.Steps, rec.Seed,
		rec.Status, rec.ErrorMessage, rec.DurationMS, createdAt,
	)
	if err != nil {
		s.mu.Lock()
		s.writeErr = err
		s.mu.Unlock()
	}
	s.pending.Add(-1)
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, model, device_index, device_name, width,
		       height, steps, seed, status, error_message, duration_ms,
		       created_at
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.Model, &rec.DeviceIndex,
			&rec.DeviceName, &rec.Width, &rec.Height, &rec.Steps,
			&rec.Seed, &rec.Status, &rec.ErrorMessage, &rec.DurationMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("history: scanning record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the total number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("history: counting records: %w", err)
	}
	return count, nil
}

// Flush blocks until the write queue is empty or ctx expires. Intended
// for tests and shutdown.
func (s *Store) Flush(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		if s.pending.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the writer (draining buffered records) and closes the
// database. Returns the last async insert error, if any.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.wg.Wait()
		err = s.db.Close()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil && s.writeErr != nil {
		err = fmt.Errorf("history: async insert failed: %w", s.writeErr)
	}
	return err
}
