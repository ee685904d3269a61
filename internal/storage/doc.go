// Package storage provides SQLite-based persistence for the opportunity catalog
// and the tracker's key/value state.
//
// The storage layer manages:
//   - Imported catalog files and their content hashes
//   - Opportunities, unique per category and dedup key
//   - Key/value state blobs with an optional byte quota
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migration versions
//   - catalog_files: Source file paths, SHA-256 hashes and parse errors
//   - opportunities: Catalog entries with JSON-encoded state lists
//   - kv_store: Persisted tracker state keyed by name
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.eduportal/catalog.db", storage.WithQuota(5<<20))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	opps, err := db.ListOpportunities(ctx, "scholarships")
//
// # Transactions
//
// Use transactions when replacing a file's opportunities:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.DeleteOpportunitiesByFile(ctx, fileID); err != nil {
//	    return err
//	}
//	// ... upsert the new rows ...
//	return tx.Commit()
//
// # Quota
//
// SetValue returns ErrQuotaExceeded when the combined size of all stored values
// would exceed the configured quota. Callers are expected to prune and retry.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and needs no C toolchain. Building
// with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
package storage
