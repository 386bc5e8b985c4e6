// Package ratelimit owns the shared rate budget for calls to the record store.
//
// Every remote call acquires a Permit, which holds one of MaxConcurrent slots
// and has consumed one token from the TokenSource. Permits are released when
// the call returns, success or failure. A 429 response pauses admission for
// the Retry-After interval.
package ratelimit
