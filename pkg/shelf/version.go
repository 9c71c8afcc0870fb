// Package shelf carries module-level metadata for the shelf database
// engine.
package shelf

// Version is the shelf release version.
const Version = "v0.1.0"
