// Package convert runs external document tools against uploaded content.
//
// Every call gets its own scratch workspace (see withWorkspace) which holds
// the input copy and whatever the tool produces, and which is removed before
// the call returns. Tool invocations are bounded by per-call timeouts.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when an external tool exceeds its time budget.
	ErrTimeout = errors.New("timed out")
	// ErrToolFailed is returned when an external tool cannot be started or exits non-zero.
	ErrToolFailed = errors.New("external tool failed")
	// ErrOutputNotFound is returned when conversion finished but produced no PDF.
	ErrOutputNotFound = errors.New("failed to find the converted PDF")
)

// Config configures a Converter.
type Config struct {
	// ScratchDir is the root under which per-call workspaces are created (default: os.TempDir()).
	ScratchDir string
	// SofficePath is the headless office converter binary (default: "soffice").
	SofficePath string
	// CatpptPath is the legacy presentation text extractor binary (default: "catppt").
	CatpptPath string
	// ConversionTimeout bounds one soffice run (default: 2m).
	ConversionTimeout time.Duration
	// ExtractorTimeout bounds one catppt run (default: 30s).
	ExtractorTimeout time.Duration

	Runner Runner
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	if c.SofficePath == "" {
		c.SofficePath = "soffice"
	}
	if c.CatpptPath == "" {
		c.CatpptPath = "catppt"
	}
	if c.ConversionTimeout <= 0 {
		c.ConversionTimeout = 2 * time.Minute
	}
	if c.ExtractorTimeout <= 0 {
		c.ExtractorTimeout = 30 * time.Second
	}
	if c.Runner == nil {
		c.Runner = ExecRunner{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Converter invokes the external converter and text extractor.
type Converter struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Converter with the given configuration.
func New(cfg Config) *Converter {
	cfg.defaults()
	return &Converter{cfg: cfg, logger: cfg.Logger}
}

// ScratchDir returns the root of the per-call workspaces.
func (c *Converter) ScratchDir() string { return c.cfg.ScratchDir }

// ToPDF copies r into a scratch file with the given suffix, converts it to
// PDF and calls fn with the path of the converted file. The path is only
// valid inside fn; the scratch file and the PDF are removed before ToPDF
// returns.
func (c *Converter) ToPDF(ctx context.Context, r io.Reader, suffix string, fn func(pdfPath string) error) error {
	return withWorkspace(c.cfg.ScratchDir, r, suffix, c.logger, func(dir, input string) error {
		args := []string{profileArg(dir), "--headless", "--convert-to", "pdf", "--outdir", dir, input}
		c.logger.Debug("convert: running converter", "bin", c.cfg.SofficePath, "input", input)
		if _, err := c.run(ctx, c.cfg.ConversionTimeout, c.cfg.SofficePath, args...); err != nil {
			return err
		}

		out, err := discover(dir, input)
		if err != nil {
			return err
		}
		return fn(out)
	})
}

// ExtractText copies r into a scratch file with the given suffix and returns
// the standard output of the text extractor run against it.
func (c *Converter) ExtractText(ctx context.Context, r io.Reader, suffix string) (string, error) {
	var text string
	err := withWorkspace(c.cfg.ScratchDir, r, suffix, c.logger, func(_, input string) error {
		c.logger.Debug("convert: running text extractor", "bin", c.cfg.CatpptPath, "input", input)
		out, err := c.run(ctx, c.cfg.ExtractorTimeout, c.cfg.CatpptPath, input)
		if err != nil {
			return err
		}
		text = string(out)
		return nil
	})
	return text, err
}

// profileArg points soffice at a user profile inside the workspace. Runs that
// share a profile hand their work to whichever instance holds its lock.
func profileArg(dir string) string {
	profile := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(dir, "profile"))}
	return "-env:UserInstallation=" + profile.String()
}

func (c *Converter) run(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tool := filepath.Base(name)
	out, err := c.cfg.Runner.Run(execCtx, name, args...)
	if err != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %w after %s", tool, ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%s: %w: %v", tool, ErrToolFailed, err)
	}
	return out, nil
}

// locator finds the converter output inside a workspace.
type locator func(dir, input string) (string, bool)

// pdfLocators are tried in order; the first hit wins.
var pdfLocators = []locator{predictedPDF, newestPDF}

func discover(dir, input string) (string, error) {
	for _, locate := range pdfLocators {
		if path, ok := locate(dir, input); ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrOutputNotFound, dir)
}

// predictedPDF is where soffice writes by default: the input stem plus ".pdf".
func predictedPDF(dir, input string) (string, bool) {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	path := filepath.Join(dir, stem+".pdf")
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		return path, true
	}
	return "", false
}

// newestPDF picks the most recently modified PDF in the workspace, for
// converter builds that rename their output.
func newestPDF(dir, _ string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	var (
		best     string
		bestTime time.Time
	)
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if best == "" || fi.ModTime().After(bestTime) {
			best, bestTime = m, fi.ModTime()
		}
	}
	return best, best != ""
}
