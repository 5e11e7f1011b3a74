// Package cli assembles the trunk command-line application: configuration
// loading, logger construction, and the synchronization root command.
package cli
