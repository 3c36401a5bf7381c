// Package exporter renders an index table as a downloadable document.
//
// CSV output uses the same layout the parser accepts, so an export can be
// uploaded again unchanged. XLSX output writes the same rows to a single
// sheet named Indices.
//
//	err := exporter.Write(w, table, exporter.FormatXLSX)
package exporter
