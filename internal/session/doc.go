// Package session persists question/answer exchanges in PostgreSQL.
//
// Every run of ask or chat belongs to a session; each exchange appends a
// user message and an assistant message with monotonically increasing
// sequence numbers. Database access goes through the Querier interface so
// the store can be tested without a live database.
package session
