package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jsoncv/config"
	"jsoncv/internal/build"
	"jsoncv/internal/pdf"
	"jsoncv/internal/render"
	"jsoncv/internal/schema"
	"jsoncv/pkg/logger"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build every resume in the resumes directory into the site",
	RunE:  runBuild,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one CV data file to index.html",
	RunE:  runRender,
}

var versionCmd = &cobra.Command{
	Use:   "version <file>",
	Short: "Install a resume as the latest version and back up the previous one",
	Args:  cobra.ExactArgs(1),
	RunE:  runVersion,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the CV schema used by the editor",
	RunE:  runSchema,
}

func newRenderer(c *config.Config) *render.Renderer {
	r := render.New(c.SiteURL)
	r.Production = c.Production
	return r
}

func newBundler(c *config.Config, theme string) build.Bundler {
	if c.Bundler == config.BundlerExec {
		return &build.ExecBundler{
			Command: c.BuildCommand,
			Env:     []string{"THEME=" + theme, "SITE_URL=" + c.SiteURL},
		}
	}
	return &build.TemplateBundler{Renderer: newRenderer(c), Theme: theme, PrimaryColor: c.PrimaryColor}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := pdf.Options{
		Mode:      cfg.PDF.Mode,
		APIURL:    cfg.PDF.APIURL,
		APIKey:    cfg.PDF.APIKey,
		ChromeBin: cfg.PDF.ChromeBin,
	}
	if mode, _ := cmd.Flags().GetString("pdf"); mode != "" {
		opts.Mode = mode
	}
	pdfRenderer, err := pdf.New(opts)
	if err != nil {
		return err
	}
	if closer, ok := pdfRenderer.(io.Closer); ok {
		defer closer.Close()
	}

	builder := &build.Builder{
		ResumesDir: cfg.ResumesDir,
		DistDir:    cfg.OutDir,
		Domain:     cfg.Domain,
		Bundler:    newBundler(cfg, cfg.Theme),
		PDF:        pdfRenderer,
	}

	report, err := builder.BuildAll(ctx)
	if err != nil {
		return err
	}
	printReport(cmd, report)

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		if len(report.Failed) > 0 {
			return fmt.Errorf("%d resume(s) failed to build", len(report.Failed))
		}
		return nil
	}

	w := &build.Watcher{
		Dir: cfg.ResumesDir,
		OnChange: func(ctx context.Context) {
			report, err := builder.BuildAll(ctx)
			if err != nil {
				logger.Sugar.Errorf("Rebuild failed: %v", err)
				return
			}
			printReport(cmd, report)
		},
	}
	return w.Run(ctx)
}

func printReport(cmd *cobra.Command, report build.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built %d resume(s)\n", report.Built)
	for _, file := range report.Failed {
		fmt.Fprintf(out, "  failed: %s\n", file)
	}
	for _, u := range report.Latest {
		fmt.Fprintf(out, "\n%s\n  JSON: %s\n  HTML: %s\n", u.Name, u.JSON, u.HTML)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	data, _ := cmd.Flags().GetString("data")
	if data == "" {
		data = cfg.DataFilename
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.OutDir
	}
	theme, _ := cmd.Flags().GetString("theme")
	if theme == "" {
		theme = cfg.Theme
	}

	if err := newBundler(cfg, theme).Bundle(cmd.Context(), data, out); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(out, "index.html"))
	return nil
}

func runVersion(cmd *cobra.Command, args []string) error {
	v, err := build.VersionResume(args[0], cfg.ResumesDir, time.Now())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if v.Backup != "" {
		fmt.Fprintf(out, "Backed up previous version to %s\n", v.Backup)
	}
	fmt.Fprintf(out, "Installed %s as %s\n", v.Name, v.Latest)
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	s := schema.Base()
	if base, _ := cmd.Flags().GetBool("base"); !base {
		augmented, err := schema.Augment(s)
		if err != nil {
			return err
		}
		s = augmented
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
