package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := filepath.Join(t.TempDir(), "reports", "nested")
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	err := v.ValidateOutputDirectory(filepath.Join(blocker, "reports"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output directory")
}

func TestFileValidator_ValidateFile(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	file := filepath.Join(dir, "baseline.json")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0644))

	tests := []struct {
		name          string
		path          string
		errorContains string
	}{
		{name: "readable file", path: file},
		{name: "missing file", path: filepath.Join(dir, "missing.json"), errorContains: "does not exist"},
		{name: "directory", path: dir, errorContains: "is a directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.path)
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ValidateReportPath(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()

	for _, name := range []string{"equity.html", "equity.XLSX", "equity.pdf", "equities.csv"} {
		assert.NoError(t, v.ValidateReportPath(filepath.Join(dir, "out", name)), name)
	}

	err := v.ValidateReportPath(filepath.Join(dir, "equity.docx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a report")

	err = v.ValidateReportPath(filepath.Join(dir, "~$equity.xlsx"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "temporary")
}

func TestFileValidator_CountReports(t *testing.T) {
	v := NewFileValidator(nil)
	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.pdf", "c.csv", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0755))

	count, err := v.CountReports(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	count, err = v.CountReports(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, count)
}
