// Package session implements jotter's session credentials.
//
// Access tokens are short-lived HS256 JWTs and are never stored. Refresh
// tokens are JWTs too, but a refresh token is only redeemable while its keyed
// digest sits in the identity's Ledger. Rotation redeems the presented token
// and appends its successor in one atomic ledger step; presenting a token that
// is no longer in the ledger clears every outstanding refresh token for that
// identity.
//
// Transport (cookies, headers) lives in the authapi package.
package session
