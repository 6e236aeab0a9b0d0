// Package memory provides process-local issue and project stores. They back
// the default service wiring and tests.
package memory
