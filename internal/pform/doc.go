// Package pform defines the parsed, lexically scoped syntax tree that the
// elaborator consumes. Nothing in here is resolved: names are strings,
// widths are expressions, and parameters are still symbolic.
package pform
