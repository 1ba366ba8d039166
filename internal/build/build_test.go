package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsoncv/internal/cv"
	"jsoncv/internal/render"
)

func writeResume(t *testing.T, dir, file, name string) string {
	t.Helper()
	doc := cv.Sample()
	doc.Meta.Name = name
	b, err := cv.MarshalIndent(doc)
	require.NoError(t, err)
	path := filepath.Join(dir, file)
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	root := t.TempDir()
	b := &Builder{
		ResumesDir: filepath.Join(root, "resumes"),
		DistDir:    filepath.Join(root, "dist"),
		TmpDir:     filepath.Join(root, ".tmp-build"),
		Domain:     "cv.example.com",
		Bundler:    &TemplateBundler{Renderer: render.New("cv.example.com"), Theme: "xenking", PrimaryColor: "#950e0e"},
	}
	require.NoError(t, os.MkdirAll(b.ResumesDir, 0o755))
	return b
}

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF"), nil
}

type emptyBundler struct{}

func (emptyBundler) Bundle(context.Context, string, string) error { return nil }

func TestBuildAll(t *testing.T) {
	b := newBuilder(t)
	writeResume(t, b.ResumesDir, "Jane Doe CV.json", "Jane Doe CV")
	writeResume(t, b.ResumesDir, "Jane Doe CV.2024-01-02T03-04-05.json", "Jane Doe CV")
	writeResume(t, b.ResumesDir, "anonymous.json", "")
	require.NoError(t, os.WriteFile(filepath.Join(b.ResumesDir, "broken.json"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(b.ResumesDir, "notes.txt"), []byte("x"), 0o644))

	report, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Built)
	assert.Equal(t, []string{"broken.json"}, report.Failed)
	assert.Equal(t, []ResumeURL{{
		Name: "Jane Doe CV",
		JSON: "https://cv.example.com/resume/Jane Doe CV.json",
		HTML: "https://cv.example.com/resume/Jane Doe CV.html",
	}}, report.Latest)

	out := filepath.Join(b.DistDir, "resume")
	assert.FileExists(t, filepath.Join(out, "Jane Doe CV.json"))
	assert.FileExists(t, filepath.Join(out, "Jane Doe CV.html"))
	assert.FileExists(t, filepath.Join(out, "Jane Doe CV.2024-01-02T03-04-05.html"))
	assert.NoFileExists(t, filepath.Join(out, "anonymous.json"))
	assert.NoDirExists(t, b.TmpDir)

	html, err := os.ReadFile(filepath.Join(out, "Jane Doe CV.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Richard Hendriks")
}

func TestBuildAllRequiresResumesDir(t *testing.T) {
	b := newBuilder(t)
	b.ResumesDir = filepath.Join(t.TempDir(), "missing")
	_, err := b.BuildAll(context.Background())
	assert.ErrorIs(t, err, ErrNoResumesDir)
}

func TestBuildAllWithNoResumes(t *testing.T) {
	b := newBuilder(t)
	report, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Built)
	assert.DirExists(t, filepath.Join(b.DistDir, "resume"))
}

func TestBuildAllSkipsMissingArtifact(t *testing.T) {
	b := newBuilder(t)
	b.Bundler = emptyBundler{}
	p := &fakePDF{}
	b.PDF = p
	writeResume(t, b.ResumesDir, "cv.json", "CV")

	report, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Built)
	assert.FileExists(t, filepath.Join(b.DistDir, "resume", "cv.json"))
	assert.NoFileExists(t, filepath.Join(b.DistDir, "resume", "cv.html"))
	assert.Zero(t, p.calls, "pdf is skipped without html")
}

func TestBuildAllWritesPDF(t *testing.T) {
	b := newBuilder(t)
	b.PDF = &fakePDF{}
	writeResume(t, b.ResumesDir, "cv.json", "CV")

	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	pdf, err := os.ReadFile(filepath.Join(b.DistDir, "resume", "cv.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf))
}

func TestBuildAllIsolatesPDFFailures(t *testing.T) {
	b := newBuilder(t)
	p := &fakePDF{err: errors.New("service down")}
	b.PDF = p
	writeResume(t, b.ResumesDir, "a.json", "A")
	writeResume(t, b.ResumesDir, "b.json", "B")

	report, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "b.json"}, report.Failed)
	assert.Equal(t, 2, p.calls)
	assert.FileExists(t, filepath.Join(b.DistDir, "resume", "b.html"))
}

func TestVersionResume(t *testing.T) {
	dir := t.TempDir()
	resumes := filepath.Join(dir, "resumes")
	src := writeResume(t, dir, "new.json", "Jane Doe CV")
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	v, err := VersionResume(src, resumes, now)
	require.NoError(t, err)
	assert.Empty(t, v.Backup)
	assert.Equal(t, filepath.Join(resumes, "Jane Doe CV.json"), v.Latest)

	v, err = VersionResume(src, resumes, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resumes, "Jane Doe CV.2024-05-06T07-08-09.json"), v.Backup)
	assert.FileExists(t, v.Backup)
	assert.False(t, IsLatest(filepath.Base(v.Backup)))
	assert.True(t, IsLatest(filepath.Base(v.Latest)))
}

func TestVersionResumeRequiresName(t *testing.T) {
	dir := t.TempDir()
	src := writeResume(t, dir, "new.json", "")
	_, err := VersionResume(src, filepath.Join(dir, "resumes"), time.Now())
	assert.ErrorIs(t, err, ErrMissingName)
	assert.NoDirExists(t, filepath.Join(dir, "resumes"))
}

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan struct{}, 10)
	w := &Watcher{Dir: dir, Debounce: 50 * time.Millisecond, OnChange: func(context.Context) {
		changes <- struct{}{}
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeResume(t, dir, "a.json", "A")
	writeResume(t, dir, "b.json", "B")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o644))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after change")
	}

	cancel()
	require.NoError(t, <-done)
}
