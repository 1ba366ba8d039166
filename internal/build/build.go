// Package build renders every versioned resume into the static site.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"jsoncv/internal/cv"
	"jsoncv/internal/pdf"
	"jsoncv/pkg/logger"
)

var (
	ErrMissingName       = errors.New("resume has no meta.name")
	ErrNoResumesDir      = errors.New("resumes directory not found")
	ErrArtifactNotFound  = errors.New("build artifact not found")
	versionedFilePattern = regexp.MustCompile(`\.\d{4}-\d{2}-\d{2}T`)
)

// Builder builds resumes from ResumesDir into DistDir/resume.
type Builder struct {
	ResumesDir string
	DistDir    string
	TmpDir     string
	Domain     string
	Bundler    Bundler
	// PDF is optional.
	PDF pdf.Renderer
}

// ResumeURL lists the public URLs of a latest resume.
type ResumeURL struct {
	Name string
	JSON string
	HTML string
}

// Report summarizes a BuildAll run.
type Report struct {
	Built  int
	Failed []string
	Latest []ResumeURL
}

func (b *Builder) outDir() string {
	return filepath.Join(b.DistDir, "resume")
}

func (b *Builder) tmpDir() string {
	if b.TmpDir != "" {
		return b.TmpDir
	}
	return ".tmp-build"
}

// BuildAll builds every *.json in ResumesDir. A failing resume is logged and
// does not stop the others.
func (b *Builder) BuildAll(ctx context.Context) (Report, error) {
	var report Report
	if _, err := os.Stat(b.ResumesDir); err != nil {
		return report, fmt.Errorf("%w: %s", ErrNoResumesDir, b.ResumesDir)
	}
	if err := os.MkdirAll(b.outDir(), 0o755); err != nil {
		return report, err
	}

	files, err := resumeFiles(b.ResumesDir)
	if err != nil {
		return report, err
	}
	if len(files) == 0 {
		logger.Sugar.Warnf("No resume files found in %s", b.ResumesDir)
		return report, nil
	}

	logger.Sugar.Infof("Building %d resume file(s)", len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := b.buildOne(ctx, file); err != nil {
			if errors.Is(err, ErrMissingName) {
				logger.Sugar.Warnf("Skipping %s: %v", file, err)
				continue
			}
			logger.Sugar.Errorf("Failed to build %s: %v", file, err)
			report.Failed = append(report.Failed, file)
			continue
		}
		report.Built++
	}

	if err := os.RemoveAll(b.tmpDir()); err != nil {
		logger.Sugar.Warnf("Failed to remove %s: %v", b.tmpDir(), err)
	}

	report.Latest = b.latestURLs(files)
	logger.Sugar.Infof("Built %d resume(s)", report.Built)
	for _, u := range report.Latest {
		logger.Sugar.Infow("Resume URLs", "name", u.Name, "json", u.JSON, "html", u.HTML)
	}
	return report, nil
}

func (b *Builder) buildOne(ctx context.Context, file string) error {
	src := filepath.Join(b.ResumesDir, file)
	doc, err := readResume(src)
	if err != nil {
		return err
	}
	base := strings.TrimSuffix(file, ".json")
	logger.Sugar.Infow("Building resume", "file", file, "name", doc.Meta.Name)

	if err := copyFile(src, filepath.Join(b.outDir(), file)); err != nil {
		return fmt.Errorf("copy json: %w", err)
	}

	tmp := filepath.Join(b.tmpDir(), base)
	defer os.RemoveAll(tmp)
	if err := b.Bundler.Bundle(ctx, src, tmp); err != nil {
		return fmt.Errorf("bundle html: %w", err)
	}

	built := filepath.Join(tmp, "index.html")
	if _, err := os.Stat(built); err != nil {
		// The JSON is published; the HTML and PDF steps are skipped.
		logger.Sugar.Warnf("%v: %s", ErrArtifactNotFound, built)
		return nil
	}
	htmlPath := filepath.Join(b.outDir(), base+".html")
	if err := copyFile(built, htmlPath); err != nil {
		return fmt.Errorf("copy html: %w", err)
	}

	if b.PDF == nil {
		return nil
	}
	html, err := os.ReadFile(htmlPath)
	if err != nil {
		return err
	}
	out, err := b.PDF.RenderPDF(ctx, html)
	if err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return os.WriteFile(filepath.Join(b.outDir(), base+".pdf"), out, 0o644)
}

// latestURLs lists resumes that are not timestamped backups.
func (b *Builder) latestURLs(files []string) []ResumeURL {
	domain := b.Domain
	if domain == "" {
		domain = "your-domain.com"
	}
	var urls []ResumeURL
	for _, file := range files {
		if !IsLatest(file) {
			continue
		}
		doc, err := readResume(filepath.Join(b.ResumesDir, file))
		if err != nil {
			continue
		}
		base := strings.TrimSuffix(file, ".json")
		urls = append(urls, ResumeURL{
			Name: doc.Meta.Name,
			JSON: "https://" + domain + "/resume/" + file,
			HTML: "https://" + domain + "/resume/" + base + ".html",
		})
	}
	return urls
}

// IsLatest reports whether file is a latest resume rather than a backup.
func IsLatest(file string) bool {
	return !versionedFilePattern.MatchString(file)
}

func readResume(path string) (cv.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cv.Document{}, err
	}
	doc, err := cv.Parse(data)
	if err != nil {
		return cv.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(doc.Meta.Name) == "" {
		return cv.Document{}, ErrMissingName
	}
	return doc, nil
}

func resumeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
