// Package pricing maps model identifiers to per-token rates and computes call
// costs. Rates use decimal arithmetic so aggregating many small costs across a
// flow does not accumulate floating-point drift. Unknown models resolve to a
// zero rate instead of an error: cost 0 is an observable "unknown/free" signal
// that keeps usage tracking working for unlisted or local models.
package pricing
