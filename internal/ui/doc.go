// Package ui renders human-facing output for trunk: console formatting of
// shell command lifecycle events and the live install streamer shown while a
// package manager reinstall runs.
package ui
