// Package domain holds the records and collaborator interfaces shared by the
// authentication engine and its storage adapters.
//
// Adapters (Redis stores, the Postgres repositories, schedulers, senders)
// implement the interfaces in ports.go and report missing records with
// [ErrNotFound].
package domain
