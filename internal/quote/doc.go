// Package quote fetches stock quotes from the upstream market-data API and
// exposes them as protocol methods.
//
// The upstream credential is injected at construction and never read from
// ambient state, so the package tests without environment setup. Calls to
// the upstream are rate limited with a token bucket.
package quote
