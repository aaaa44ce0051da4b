package config

import (
	"os"
	"path/filepath"
	"strings"
)

// baseDir anchors relative runtime paths: the resolved binary location, then
// the working directory.
func baseDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// RuntimePath returns raw, or fallback when raw is blank, made absolute
// against the binary's directory.
func RuntimePath(raw, fallback string) string {
	p := strings.TrimSpace(raw)
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir(), p)
}
