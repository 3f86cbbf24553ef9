// Package knowledge stores the school corpus as embedded passages in
// PostgreSQL and serves vector similarity search over them.
//
// The Store pairs a Gemini embedder with pgvector: every passage is embedded
// on write, and queries are embedded on read and ranked by cosine distance.
// Database access goes through the Querier interface so the store can be
// tested without a live database.
package knowledge
