// Package persist stores channel broadcast history in a SQL database so that
// predictions survive restarts.
//
// SQLite (modernc.org/sqlite, pure Go) and Postgres (github.com/lib/pq) are
// supported. Queries are built with squirrel so the placeholder style follows
// the driver.
package persist
