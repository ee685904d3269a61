package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded is returned when a key/value write would exceed the storage quota
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db         *sql.DB
	quotaBytes int64
}

// Option configures a SQLiteStorage
type Option func(*SQLiteStorage)

// WithQuota bounds the total size in bytes of all key/value data. Zero means unbounded.
func WithQuota(bytes int64) Option {
	return func(s *SQLiteStorage) {
		s.quotaBytes = bytes
	}
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string, opts ...Option) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := &SQLiteStorage{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Opportunity operations

// upsertOpportunityWithQuerier is the internal implementation that uses a querier.
// A conflicting (category, dedup_key) keeps its row id, so catalog order is stable.
func (s *SQLiteStorage) upsertOpportunityWithQuerier(ctx context.Context, q querier, opp *Opportunity) error {
	query := `
		INSERT INTO opportunities (file_id, category, dedup_key, external_id, name, description,
		                           source, url, date_posted, priority, states, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(category, dedup_key) DO UPDATE SET
			file_id = excluded.file_id,
			external_id = excluded.external_id,
			name = excluded.name,
			description = excluded.description,
			source = excluded.source,
			url = excluded.url,
			date_posted = excluded.date_posted,
			priority = excluded.priority,
			states = excluded.states,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`
	states, err := encodeStates(opp.States)
	if err != nil {
		return err
	}

	var datePosted sql.NullTime
	if opp.DatePosted != nil {
		datePosted = sql.NullTime{Time: *opp.DatePosted, Valid: true}
	}
	var priority sql.NullInt64
	if opp.Priority != nil {
		priority = sql.NullInt64{Int64: int64(*opp.Priority), Valid: true}
	}
	var fileID sql.NullInt64
	if opp.FileID != nil {
		fileID = sql.NullInt64{Int64: *opp.FileID, Valid: true}
	}

	now := dbNow()
	err = q.QueryRowContext(ctx, query,
		fileID, opp.Category, opp.DedupKey, opp.ExternalID, opp.Name, opp.Description,
		opp.Source, opp.URL, datePosted, priority, states, now, now).Scan(&opp.ID, &opp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert opportunity: %w", err)
	}
	opp.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertOpportunity(ctx context.Context, opp *Opportunity) error {
	return s.upsertOpportunityWithQuerier(ctx, s.querier(), opp)
}

// listOpportunitiesWithQuerier returns opportunities in insertion order; an empty
// category lists every category
func (s *SQLiteStorage) listOpportunitiesWithQuerier(ctx context.Context, q querier, category string) ([]*Opportunity, error) {
	query := `
		SELECT id, file_id, category, dedup_key, external_id, name, description, source, url,
		       date_posted, priority, states, created_at, updated_at
		FROM opportunities
		WHERE (? = '' OR category = ?)
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, category, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}
	defer func() { _ = rows.Close() }()

	opps := make([]*Opportunity, 0)
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}

func (s *SQLiteStorage) ListOpportunities(ctx context.Context, category string) ([]*Opportunity, error) {
	return s.listOpportunitiesWithQuerier(ctx, s.querier(), category)
}

func (s *SQLiteStorage) countOpportunitiesWithQuerier(ctx context.Context, q querier, category string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM opportunities WHERE (? = '' OR category = ?)", category, category).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountOpportunities(ctx context.Context, category string) (int, error) {
	return s.countOpportunitiesWithQuerier(ctx, s.querier(), category)
}

func (s *SQLiteStorage) deleteOpportunitiesByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, "DELETE FROM opportunities WHERE file_id = ?", fileID)
	return err
}

func (s *SQLiteStorage) DeleteOpportunitiesByFile(ctx context.Context, fileID int64) error {
	return s.deleteOpportunitiesByFileWithQuerier(ctx, s.querier(), fileID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row rowScanner) (*Opportunity, error) {
	var opp Opportunity
	var fileID, priority sql.NullInt64
	var externalID, description, source, url, states sql.NullString
	var datePosted sql.NullTime

	err := row.Scan(
		&opp.ID, &fileID, &opp.Category, &opp.DedupKey, &externalID, &opp.Name,
		&description, &source, &url, &datePosted, &priority, &states,
		&opp.CreatedAt, &opp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	opp.ExternalID = externalID.String
	opp.Description = description.String
	opp.Source = source.String
	opp.URL = url.String
	if fileID.Valid {
		id := fileID.Int64
		opp.FileID = &id
	}
	if datePosted.Valid {
		t := datePosted.Time
		opp.DatePosted = &t
	}
	if priority.Valid {
		p := int(priority.Int64)
		opp.Priority = &p
	}
	if states.Valid && states.String != "" {
		if err := json.Unmarshal([]byte(states.String), &opp.States); err != nil {
			return nil, fmt.Errorf("failed to decode states for opportunity %d: %w", opp.ID, err)
		}
	}
	return &opp, nil
}

func encodeStates(states []string) (sql.NullString, error) {
	if len(states) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(states)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode states: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Catalog file operations

// upsertCatalogFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertCatalogFileWithQuerier(ctx context.Context, q querier, file *CatalogFile) error {
	query := `
		INSERT INTO catalog_files (path, content_hash, mod_time, size_bytes, parse_error, last_imported_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			parse_error = excluded.parse_error,
			last_imported_at = excluded.last_imported_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := dbNow()
	err := q.QueryRowContext(ctx, query,
		file.Path, file.ContentHash[:], dbTime(file.ModTime), file.SizeBytes, file.ParseError, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog file: %w", err)
	}

	file.LastImportedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertCatalogFile(ctx context.Context, file *CatalogFile) error {
	return s.upsertCatalogFileWithQuerier(ctx, s.querier(), file)
}

const catalogFileColumns = `id, path, content_hash, mod_time, size_bytes, parse_error, last_imported_at, created_at, updated_at`

func scanCatalogFile(row rowScanner) (*CatalogFile, error) {
	var file CatalogFile
	var hash []byte
	var parseError sql.NullString
	var modTime, lastImportedAt sql.NullTime
	var size sql.NullInt64
	err := row.Scan(
		&file.ID, &file.Path, &hash, &modTime, &size, &parseError,
		&lastImportedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	file.ModTime = modTime.Time
	file.SizeBytes = size.Int64
	file.LastImportedAt = lastImportedAt.Time
	if parseError.Valid {
		file.ParseError = &parseError.String
	}
	return &file, nil
}

// getCatalogFileWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getCatalogFileWithQuerier(ctx context.Context, q querier, path string) (*CatalogFile, error) {
	row := q.QueryRowContext(ctx, "SELECT "+catalogFileColumns+" FROM catalog_files WHERE path = ?", path)
	file, err := scanCatalogFile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *SQLiteStorage) GetCatalogFile(ctx context.Context, path string) (*CatalogFile, error) {
	return s.getCatalogFileWithQuerier(ctx, s.querier(), path)
}

func (s *SQLiteStorage) listCatalogFilesWithQuerier(ctx context.Context, q querier) ([]*CatalogFile, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+catalogFileColumns+" FROM catalog_files ORDER BY path")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := make([]*CatalogFile, 0)
	for rows.Next() {
		file, err := scanCatalogFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListCatalogFiles(ctx context.Context) ([]*CatalogFile, error) {
	return s.listCatalogFilesWithQuerier(ctx, s.querier())
}

// Key/value operations

func (s *SQLiteStorage) getValueWithQuerier(ctx context.Context, q querier, key string) (string, error) {
	var value string
	err := q.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *SQLiteStorage) GetValue(ctx context.Context, key string) (string, error) {
	return s.getValueWithQuerier(ctx, s.querier(), key)
}

// setValueWithQuerier writes key, refusing writes that would push the total stored
// value size past the quota
func (s *SQLiteStorage) setValueWithQuerier(ctx context.Context, q querier, key, value string) error {
	if s.quotaBytes > 0 {
		var used int64
		err := q.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0) FROM kv_store WHERE key != ?", key).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to measure state size: %w", err)
		}
		if used+int64(len(value)) > s.quotaBytes {
			return fmt.Errorf("%w: writing %d bytes to %q with %d of %d bytes used",
				ErrQuotaExceeded, len(value), key, used, s.quotaBytes)
		}
	}

	query := `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, value, dbNow()); err != nil {
		return fmt.Errorf("failed to set value %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) SetValue(ctx context.Context, key, value string) error {
	return s.setValueWithQuerier(ctx, s.querier(), key, value)
}

func (s *SQLiteStorage) deleteValueWithQuerier(ctx context.Context, q querier, key string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key)
	return err
}

func (s *SQLiteStorage) DeleteValue(ctx context.Context, key string) error {
	return s.deleteValueWithQuerier(ctx, s.querier(), key)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier) (*CatalogStatus, error) {
	status := &CatalogStatus{
		OpportunityCounts: make(map[string]int),
		QuotaBytes:        s.quotaBytes,
	}

	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM catalog_files").Scan(&status.FilesCount); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, "SELECT category, COUNT(*) FROM opportunities GROUP BY category ORDER BY category")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.OpportunityCounts[category] = count
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(LENGTH(CAST(value AS BLOB))), 0) FROM kv_store").Scan(&status.StateKeys, &status.StateBytes)
	if err != nil {
		return nil, err
	}

	var lastImported sql.NullString
	if err := q.QueryRowContext(ctx, "SELECT MAX(last_imported_at) FROM catalog_files").Scan(&lastImported); err == nil && lastImported.Valid {
		if t, perr := parseTimestamp(lastImported.String); perr == nil {
			status.LastImportedAt = t
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context) (*CatalogStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier())
}

// dbTime drops the monotonic reading and location so stored timestamps stay parseable
func dbTime(t time.Time) time.Time {
	return t.Round(0).UTC()
}

func dbNow() time.Time {
	return dbTime(time.Now())
}

// parseTimestamp parses the textual timestamps SQLite aggregates return
func parseTimestamp(v string) (time.Time, error) {
	if i := strings.Index(v, " m="); i >= 0 {
		v = v[:i]
	}
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}

// Transaction implementations delegate to the shared querier functions

func (t *sqliteTx) UpsertOpportunity(ctx context.Context, opp *Opportunity) error {
	return t.storage.upsertOpportunityWithQuerier(ctx, t.querier(), opp)
}

func (t *sqliteTx) ListOpportunities(ctx context.Context, category string) ([]*Opportunity, error) {
	return t.storage.listOpportunitiesWithQuerier(ctx, t.querier(), category)
}

func (t *sqliteTx) CountOpportunities(ctx context.Context, category string) (int, error) {
	return t.storage.countOpportunitiesWithQuerier(ctx, t.querier(), category)
}

func (t *sqliteTx) DeleteOpportunitiesByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteOpportunitiesByFileWithQuerier(ctx, t.querier(), fileID)
}

func (t *sqliteTx) UpsertCatalogFile(ctx context.Context, file *CatalogFile) error {
	return t.storage.upsertCatalogFileWithQuerier(ctx, t.querier(), file)
}

func (t *sqliteTx) GetCatalogFile(ctx context.Context, path string) (*CatalogFile, error) {
	return t.storage.getCatalogFileWithQuerier(ctx, t.querier(), path)
}

func (t *sqliteTx) ListCatalogFiles(ctx context.Context) ([]*CatalogFile, error) {
	return t.storage.listCatalogFilesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetValue(ctx context.Context, key string) (string, error) {
	return t.storage.getValueWithQuerier(ctx, t.querier(), key)
}

func (t *sqliteTx) SetValue(ctx context.Context, key, value string) error {
	return t.storage.setValueWithQuerier(ctx, t.querier(), key, value)
}

func (t *sqliteTx) DeleteValue(ctx context.Context, key string) error {
	return t.storage.deleteValueWithQuerier(ctx, t.querier(), key)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*CatalogStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	return fmt.Errorf("cannot close storage from within a transaction")
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, fmt.Errorf("nested transactions are not supported")
}
