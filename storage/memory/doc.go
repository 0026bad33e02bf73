// Package memory provides process-local implementations of the durable
// entities: accounts, the lockout audit log and access points. They back
// tests and single-process deployments that run without Postgres.
package memory
