// Package importer loads catalog JSON files into storage.
//
// # Basic Usage
//
//	imp := importer.New(store)
//
//	stats, err := imp.Import(ctx, "/srv/eduportal/catalog", nil)
//	fmt.Printf("Imported %d files in %v\n", stats.FilesImported, stats.Duration)
//
// # Pipeline
//
//  1. Discovery: find every .json file under the path, skipping hidden directories
//  2. Read: hash and decode files in parallel, bounded by Config.Workers
//  3. Incremental decision: files whose SHA-256 hash matches the stored one are skipped
//  4. Store: replace each changed file's opportunities, Config.BatchSize files per transaction
//
// # File Format
//
// A file holds either an array of records or an object keyed by category:
//
//	{"scholarships": [{"name": "National Scholarship Portal (NSP)", "url": "https://scholarships.gov.in", "priority": 1}]}
//
// Records in an array without a "category" field take the category named by the
// file, so scholarships.json may omit it.
//
// Invalid records are skipped and counted; the file is still imported and its
// parse error recorded. A file that cannot be decoded at all is recorded with its
// parse error and contributes no opportunities.
//
// # Concurrency
//
// Only one import runs at a time. A second call while one is running returns
// ErrImportInProgress immediately.
package importer
