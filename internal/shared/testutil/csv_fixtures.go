package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// SimpleCSV is the two-day DAX/SP500 table used across packages.
const SimpleCSV = "Date,DAX,SP500\n20150501,1,600\n20150502,2,1200\n"

// GenerateCSV renders a Date,DAX,SP500 CSV with n consecutive days starting
// at start (YYYYMMDD).
func GenerateCSV(t testing.TB, n int, start string) string {
	t.Helper()

	day, err := time.Parse("20060102", start)
	if err != nil {
		t.Fatalf("invalid start date %q: %v", start, err)
	}

	var b strings.Builder
	b.WriteString("Date,DAX,SP500\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%d,%d\n", day.Format("20060102"), 10000+i, 2000+i)
		day = day.AddDate(0, 0, 1)
	}
	return b.String()
}

// WriteFile writes content to name inside a per-test temp dir and returns the
// full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
