// Package cmd provides the command-line interface for mdbook-dice.
//
// Run without a subcommand, the binary is an mdBook preprocessor: it reads
// the `[context, book]` JSON pair from stdin and writes the rewritten book
// to stdout. Every diagnostic goes to stderr.
//
// # Available Commands
//
//   - supports: answer mdBook's renderer query through the exit code
//   - scan: list the dice notations found in Markdown sources
//   - render: print or write Markdown files with the notation rewritten
//   - version: show build information
//
// # Command Examples
//
//	// book.toml
//	[preprocessor.dice]
//	command = "mdbook-dice"
//
//	// List every notation under src/ as JSON
//	mdbook-dice scan src --format json
//
//	// Re-render chapters into preview/ whenever they change
//	mdbook-dice render src --out preview --watch
//
// # Configuration Integration
//
// Commands respect configuration from multiple sources in order of precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (MDBOOK_DICE_*)
//  3. Configuration file (.mdbook-dice.yml)
//  4. Default values (lowest priority)
//
// As a preprocessor the book's [preprocessor.dice] table overrides the class
// names on top of all of these.
package cmd
