package vfs

import (
	"os"
	"path/filepath"
	"sort"
)

// OSDisk is the FS backed by the host file system.
type OSDisk struct{}

func NewOSDisk() *OSDisk { return &OSDisk{} }

func (OSDisk) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSDisk) WriteFile(name string, data []byte, appendData bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendData {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(name, flags, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (OSDisk) Remove(name string) error { return os.Remove(name) }

func (OSDisk) Stat(name string) FileType {
	info, err := os.Stat(name)
	switch {
	case err != nil:
		return NotFound
	case info.IsDir():
		return Directory
	}
	return RegularFile
}

func (OSDisk) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (OSDisk) Getwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return dir
}

func (OSDisk) Chdir(dir string) error { return os.Chdir(dir) }

func (OSDisk) Abs(name string) string {
	p, err := filepath.Abs(name)
	if err != nil {
		return name
	}
	return p
}
