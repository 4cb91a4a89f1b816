// Package testsupport holds helpers shared by the package tests: fixture
// and golden files, temporary data directories and CSV writers.
package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// UpdateGoldenEnv rewrites golden files instead of comparing when set to 1.
const UpdateGoldenEnv = "UPDATE_GOLDEN"

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to load fixture from %s", path)
	return data
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath constructs a path to a golden file relative to the testdata directory.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}

// CompareJSONWithGolden checks that actual is JSON equivalent to the golden
// file at path. With UPDATE_GOLDEN=1 the file is rewritten instead.
func CompareJSONWithGolden(t *testing.T, path string, actual []byte) {
	t.Helper()

	if os.Getenv(UpdateGoldenEnv) == "1" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, actual, 0o644))
		return
	}

	expected := LoadFixture(t, path)
	assert.JSONEq(t, string(expected), string(actual), "output mismatch for %s", path)
}

// DataDir creates a temporary directory and copies the named testdata
// fixtures into it. It returns the directory path.
func DataDir(t *testing.T, fixtures ...string) string {
	t.Helper()

	dir := t.TempDir()
	for _, name := range fixtures {
		data := LoadFixture(t, FixturePath(name))
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	return dir
}

// WriteCSV writes header and rows as dir/name and returns the file path.
func WriteCSV(t *testing.T, dir, name string, header []string, rows ...[]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}
