// Package catalog supplies candidate opportunities per category.
//
// A Catalog merges an ordered list of sources, normally the imported ("live")
// catalog followed by the built-in defaults. Entries are deduplicated on their URL,
// or name when the URL is absent, and the first occurrence wins. A failing source is
// logged and skipped so callers always get a (possibly empty) list.
//
// The package also decodes catalog JSON records and fetches the remote trending feed.
package catalog
