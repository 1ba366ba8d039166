package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"jsoncv/internal/cv"
	"jsoncv/internal/render"
)

// Bundler turns one CV data file into a site under outDir whose entry page
// is index.html.
type Bundler interface {
	Bundle(ctx context.Context, dataFile, outDir string) error
}

// TemplateBundler renders with the bundled themes.
type TemplateBundler struct {
	Renderer     *render.Renderer
	Theme        string
	PrimaryColor string
}

func (b *TemplateBundler) Bundle(_ context.Context, dataFile, outDir string) error {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		return err
	}
	doc, err := cv.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", dataFile, err)
	}

	theme := b.Theme
	if theme == "" {
		theme = doc.Meta.Theme
	}
	html, err := b.Renderer.RenderHTML(doc, theme, b.PrimaryColor)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outDir, "index.html"), html, 0o644)
}

// ExecBundler runs an external build command with DATA_FILENAME and OUT_DIR
// set, e.g. "npm run build".
type ExecBundler struct {
	Command []string
	Dir     string
	Env     []string
}

func (b *ExecBundler) Bundle(ctx context.Context, dataFile, outDir string) error {
	args := b.Command
	if len(args) == 0 {
		args = []string{"npm", "run", "build"}
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = b.Dir
	cmd.Env = append(os.Environ(), b.Env...)
	cmd.Env = append(cmd.Env, "DATA_FILENAME="+dataFile, "OUT_DIR="+outDir)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", args[0], err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}
