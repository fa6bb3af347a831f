// Package internal contains the implementation packages for mdbook-dice.
//
// # Package Organization
//
//   - notation: dice notation recognition and the markup rewrite
//   - book: the mdBook preprocessor wire format (context and book JSON)
//   - preprocessor: the supports check and the stdin to stdout run
//   - version: build information and the mdBook version requirement
//   - config: configuration from the book table, files and environment
//   - scanner: concurrent discovery of notation in Markdown sources
//   - watcher: debounced file system monitoring for render --watch
//   - logging: structured logging on top of log/slog
//   - errors: typed errors, exit codes and error collection
//   - testutils: fixtures shared by the tests
//
// Data flows one way: the command layer loads configuration, builds a
// notation.Rewriter from it and hands the rewriter to either the
// preprocessor (mdBook integration) or the scanner and renderer commands
// (standalone use). No package below cmd writes to stdout on its own.
package internal
