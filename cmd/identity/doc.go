// Package identity holds jotter's user records: the durable principal that
// sessions are issued for.
//
// It owns user ids (ULID), email normalisation, password hashing via
// cmd/security/password, and the Store boundary with memory and Postgres
// implementations. Refresh-token state lives in the session package.
package identity
