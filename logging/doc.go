// Package logging provides the minimal Logger interface every finmesh
// component depends on, together with adapters for log/slog and zap. Zap is
// the production backend: it writes to the console and, when a file is
// configured, to a size rotated log file.
package logging
