// Package fallback implements the provider fallback chain used for every
// external capability (generation, web search, retrieval lanes).
//
// A Chain holds a priority ordered list of interchangeable backends. Invoke
// tries them strictly one after another, bounding each attempt with its own
// timeout, and returns the first successful value. When every backend fails
// the chain returns a degraded Result describing each failure instead of an
// error, so callers can keep going with a fallback of their own.
package fallback
