package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsoncv/internal/cv"
)

// execute runs the CLI in a scratch directory and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("JSONCV_CONFIG", "")
	t.Setenv("RESUMES_DIR", filepath.Join(dir, "resumes"))
	t.Setenv("OUT_DIR", filepath.Join(dir, "dist"))
	t.Setenv("PDF_MODE", "none")
	t.Setenv("BUNDLER", "template")
	t.Setenv("DOMAIN", "cv.example.com")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.cv.json"), cv.SampleJSON(), 0o644))
	return dir
}

func TestSchemaCommand(t *testing.T) {
	setupWorkspace(t)
	out, err := execute(t, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"properties"`)
}

func TestRenderCommand(t *testing.T) {
	dir := setupWorkspace(t)
	out, err := execute(t, "render", "--data", filepath.Join(dir, "sample.cv.json"), "--out", filepath.Join(dir, "site"), "--theme", "classic")
	require.NoError(t, err)
	assert.Contains(t, out, "index.html")

	html, err := os.ReadFile(filepath.Join(dir, "site", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "theme-classic")
}

func TestVersionAndBuildCommands(t *testing.T) {
	dir := setupWorkspace(t)
	sample := filepath.Join(dir, "sample.cv.json")

	out, err := execute(t, "version", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "Installed Richard Hendriks CV")
	assert.NotContains(t, out, "Backed up")

	out, err = execute(t, "version", sample)
	require.NoError(t, err)
	assert.Contains(t, out, "Backed up previous version")

	out, err = execute(t, "build", "--watch=false")
	require.NoError(t, err)
	assert.Contains(t, out, "Built 2 resume(s)")
	assert.Contains(t, out, "https://cv.example.com/resume/Richard Hendriks CV.html")

	assert.FileExists(t, filepath.Join(dir, "dist", "resume", "Richard Hendriks CV.html"))
	assert.FileExists(t, filepath.Join(dir, "dist", "resume", "Richard Hendriks CV.json"))
}

func TestVersionCommandNeedsFile(t *testing.T) {
	setupWorkspace(t)
	_, err := execute(t, "version")
	assert.Error(t, err)
}

// chdir switches the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
