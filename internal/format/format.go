// Package format shells out to an external formatter, topiary by default,
// feeding the document through stdin and reading the result from stdout.
package format

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"scadls/internal/config"
	"scadls/internal/core/errors"
)

type Formatter struct {
	cfg *config.Store
	log *slog.Logger
}

func New(cfg *config.Store, log *slog.Logger) *Formatter {
	if log == nil {
		log = slog.Default()
	}
	return &Formatter{cfg: cfg, log: log}
}

// Format runs the configured formatter on text and returns the replacement
// document. The formatter's own error output is passed through so the
// editor shows the real cause.
func (f *Formatter) Format(ctx context.Context, path string, text []byte) (string, error) {
	cfg := f.cfg.Get()
	exe := cfg.Format.Exe

	args := []string{"format", "--language", "openscad"}
	if cfg.Format.QueryFile != "" {
		args = append(args, "--query", config.ExpandPath(cfg.Format.QueryFile))
	}

	cmd := exec.CommandContext(ctx, exe, args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Stdin = bytes.NewReader(text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		f.log.Warn("formatter failed", "exe", exe, "path", path, "error", msg)
		return "", errors.Newf(errors.CodeFormatFailed, "%s: %s", exe, msg)
	}
	if stdout.Len() == 0 {
		return "", errors.Newf(errors.CodeFormatFailed, "%s produced no output", exe)
	}
	return stdout.String(), nil
}
