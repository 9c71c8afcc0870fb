// Package types defines the data model for the Shelf database engine:
// typed values, column constraints, tables, databases with lifecycle
// states, select responses, and the standard error values shared by
// every layer above the kernel.
package types
