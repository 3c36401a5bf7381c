// Package testutil holds helpers shared by package tests: a capturing slog
// handler and CSV fixtures for the index table.
package testutil
