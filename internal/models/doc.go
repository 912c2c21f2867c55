// Package models defines the core domain models for Tripdana.
//
// A Trip is the aggregate root: it owns members, destinations, savings
// payments, expenses, withdrawals and audit log entries. Financial totals
// (collected savings, spent expenses, remaining balance) are derived by
// aggregation on read and never stored.
//
// Entity ids (trips, destinations, savings, expenses, withdrawals, audit
// entries) are UUIDv7 strings, which sort lexicographically by creation time.
// Join rows (trip members, withdrawal votes) use sequential integer ids.
package models
