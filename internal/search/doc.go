// Package search implements line-oriented substring matching over a text
// body, plus a small generic memoizer.
//
// Both matchers are pure: they never fail, never mutate their input and
// return lines that share memory with the searched content.
package search
