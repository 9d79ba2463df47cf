// Package authclient is a Go client for the jotter auth API.
//
// A Client keeps the access token in memory and the refresh token in its
// cookie jar. When a protected call comes back 401 the Client asks its
// Coordinator for a new access token and replays the call once. The
// Coordinator makes sure that however many calls fail at the same time, only
// one refresh request is sent; the others wait for its outcome in the order
// they arrived.
//
// Coordination is per process. Two processes sharing one refresh token will
// race, and the loser observes reuse detection.
package authclient
