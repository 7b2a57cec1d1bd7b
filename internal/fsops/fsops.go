package fsops

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS is an abstract filesystem used across the app and tests.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error

	Ext(name string) string
	Dir(name string) string
	Clean(name string) string
}

// ---------- OS-backed implementation ----------

type OS struct{}

func NewOS() OS { return OS{} }

func (OS) ReadFile(name string) ([]byte, error) { return os.ReadFile(filepath.Clean(name)) }
func (OS) WriteFile(name string, b []byte, p os.FileMode) error {
	return os.WriteFile(filepath.Clean(name), b, p)
}
func (OS) Stat(name string) (fs.FileInfo, error)     { return os.Stat(filepath.Clean(name)) }
func (OS) MkdirAll(path string, p os.FileMode) error { return os.MkdirAll(filepath.Clean(path), p) }
func (OS) Ext(name string) string                    { return filepath.Ext(name) }
func (OS) Dir(name string) string                    { return filepath.Dir(name) }
func (OS) Clean(name string) string                  { return filepath.Clean(name) }

// ---------- In-memory implementation (for tests/integration) ----------

type Mem struct{ Fs afero.Fs }

func NewMem() Mem { return Mem{Fs: afero.NewMemMapFs()} }

func (m Mem) ReadFile(name string) ([]byte, error) { return afero.ReadFile(m.Fs, filepath.Clean(name)) }
func (m Mem) WriteFile(name string, b []byte, p os.FileMode) error {
	return afero.WriteFile(m.Fs, filepath.Clean(name), b, p)
}
func (m Mem) Stat(name string) (fs.FileInfo, error) { return m.Fs.Stat(filepath.Clean(name)) }
func (m Mem) MkdirAll(path string, p os.FileMode) error {
	return m.Fs.MkdirAll(filepath.Clean(path), p)
}
func (Mem) Ext(name string) string   { return filepath.Ext(name) }
func (Mem) Dir(name string) string   { return filepath.Dir(name) }
func (Mem) Clean(name string) string { return filepath.Clean(name) }

// ---------- High-level façade used by commands ----------

const (
	outputFilePermissions      = os.FileMode(0o644)
	outputDirectoryPermissions = os.FileMode(0o755)
)

type Ops struct{ FS FS }

func NewOps(fs FS) Ops { return Ops{FS: fs} }

// ReadSource reads a source or job file as text.
func (o Ops) ReadSource(path string) (string, error) {
	data, readErr := o.FS.ReadFile(path)
	if readErr != nil {
		return "", readErr
	}
	return string(data), nil
}

// WriteOutput writes result text, creating parent directories as needed.
func (o Ops) WriteOutput(path string, content string) error {
	if mkdirErr := o.FS.MkdirAll(o.FS.Dir(path), outputDirectoryPermissions); mkdirErr != nil {
		return mkdirErr
	}
	return o.FS.WriteFile(path, []byte(content), outputFilePermissions)
}

// FileExists reports whether the path resolves to anything.
func (o Ops) FileExists(p string) bool { _, err := o.FS.Stat(p); return err == nil }
