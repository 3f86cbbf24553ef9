// Package corpus ingests the school's scraped content into the knowledge
// store. The corpus ships as a JSON array of page records; each record is
// split into bounded chunks with no overlap and upserted with deterministic
// IDs, so reindexing the same file is idempotent.
package corpus
