// Package postgres implements the durable domain entities (accounts, the
// lockout audit log and access points) on PostgreSQL through pgx.
//
// [NewConnection] opens a pool and applies the embedded goose migrations
// before returning.
package postgres
