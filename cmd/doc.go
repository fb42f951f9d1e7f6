// Package cmd implements the command-line interface for zoomscribe.
//
// This package provides the following commands:
//   - download: List cloud recordings and download their assets to disk
//   - list: Print recording summaries for the requested window
//   - serve: Start the HTTP server for recording queries and downloads
//   - version: Display version information
//
// The download command is the default command when no subcommand is specified.
package cmd
