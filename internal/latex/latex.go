// Package latex wraps the external LaTeX toolchain behind narrow interfaces:
// a content loader producing HTML-ready body text, and a PDF compiler. The
// toolchain search path (TEXINPUTS) is threaded explicitly through the
// invocation rather than mutated into the process environment.
package latex

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Loader converts a LaTeX source document into rendered body text.
type Loader interface {
	Load(ctx context.Context, sourcePath, workDir string) (string, error)
}

// Compiler produces a PDF from a LaTeX source. One call is one pass; callers
// run it repeatedly to resolve cross-references.
type Compiler interface {
	Compile(ctx context.Context, sourcePath, outDir string) error
}

// ExecLoader shells out to a plastex-style converter that writes index.html
// into a target directory.
type ExecLoader struct {
	Binary    string // defaults to "plastex"
	TexInputs []string
}

func (l *ExecLoader) binary() string {
	if l.Binary == "" {
		return "plastex"
	}
	return l.Binary
}

func (l *ExecLoader) Load(ctx context.Context, sourcePath, workDir string) (string, error) {
	bin := l.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("latex loader binary %q not found: %w", bin, err)
	}

	outDir := filepath.Join(workDir, "latex")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create latex work dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "--dir="+outDir, sourcePath)
	cmd.Env = append(os.Environ(), texInputsEnv(l.TexInputs))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("running latex loader", "binary", bin, "source", sourcePath)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			slog.Error("latex loader failed", "source", sourcePath, "stderr", msg)
		}
		return "", fmt.Errorf("latex loader on %s: %w", sourcePath, err)
	}

	rendered, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		return "", fmt.Errorf("latex loader produced no output for %s: %w", sourcePath, err)
	}
	return string(rendered), nil
}

// ExecCompiler invokes a pdflatex-style binary.
type ExecCompiler struct {
	Binary    string // defaults to "pdflatex"
	TexInputs []string
}

func (c *ExecCompiler) binary() string {
	if c.Binary == "" {
		return "pdflatex"
	}
	return c.Binary
}

func (c *ExecCompiler) Compile(ctx context.Context, sourcePath, outDir string) error {
	bin := c.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("pdf compiler binary %q not found: %w", bin, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create pdf output dir: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, "-interaction=nonstopmode", "-output-directory", outDir, sourcePath)
	cmd.Env = append(os.Environ(), texInputsEnv(c.TexInputs))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	slog.Debug("running pdf compiler", "binary", bin, "source", sourcePath, "out", outDir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pdf compile of %s: %w (%s)", sourcePath, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// texInputsEnv joins the configured search path segments; the trailing empty
// segment keeps the toolchain's built-in defaults reachable.
func texInputsEnv(inputs []string) string {
	parts := append(append([]string{}, inputs...), os.Getenv("TEXINPUTS"), "")
	return "TEXINPUTS=" + strings.Join(parts, ":")
}
