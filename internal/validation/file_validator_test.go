package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("Date,DAX\n"), 0o644))
	}
}

func TestFileValidator_ExpandInputs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.csv", "a.csv", "notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	v := NewFileValidator(nil)

	files, err := v.ExpandInputs([]string{filepath.Join(dir, "*.csv"), "literal.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.csv"),
		"literal.csv",
	}, files)

	_, err = v.ExpandInputs([]string{filepath.Join(dir, "*.xlsx")})
	assert.ErrorContains(t, err, "no files match")

	_, err = v.ExpandInputs([]string{"["})
	assert.Error(t, err)

	files, err = v.ExpandInputs(nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestFileValidator_ValidateCSVFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "ok.csv", "OK2.CSV", "data.txt")

	tests := []struct {
		name          string
		path          string
		errorContains string
	}{
		{"csv", filepath.Join(dir, "ok.csv"), ""},
		{"upper case extension", filepath.Join(dir, "OK2.CSV"), ""},
		{"wrong extension", filepath.Join(dir, "data.txt"), "not a CSV file"},
		{"missing", filepath.Join(dir, "missing.csv"), "does not exist"},
		{"directory", dir, "is a directory"},
	}

	v := NewFileValidator(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateCSVFile(tt.path)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateOutputFile(t *testing.T) {
	dir := t.TempDir()
	v := NewFileValidator(nil)

	nested := filepath.Join(dir, "out", "nested", "indices.xlsx")
	require.NoError(t, v.ValidateOutputFile(nested, "xlsx"))
	assert.DirExists(t, filepath.Dir(nested))

	entries, err := os.ReadDir(filepath.Dir(nested))
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	assert.NoError(t, v.ValidateOutputFile(filepath.Join(dir, "indices"), "csv"))
	assert.ErrorContains(t, v.ValidateOutputFile(filepath.Join(dir, "indices.csv"), "xlsx"), "does not match")
}
