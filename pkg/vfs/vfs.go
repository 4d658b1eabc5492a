// Package vfs is the file system seen by the file built-ins of a running
// program: either the host disk or an in-memory virtual disk that can be
// seeded from, and persisted back to, a host directory.
package vfs

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// MaxDiskBytes is the default quota of a VirtualDisk.
const MaxDiskBytes = 16 << 20

// validSegment matches one path segment of a virtual file name.
var validSegment = regexp.MustCompile(`^[a-zA-Z0-9_.\-]{1,64}$`)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFilename = errors.New("invalid filename")
	ErrQuotaExceeded   = errors.New("disk quota exceeded")
	ErrNotDirectory    = errors.New("not a directory")
)

// FileType classifies a path the way the FileType built-in reports it.
type FileType int

const (
	NotFound FileType = iota
	RegularFile
	Directory
)

// FS is the file system interface used by the runtime built-ins.
type FS interface {
	ReadFile(name string) ([]byte, error)
	// WriteFile creates or replaces name, or appends to it when append is set.
	WriteFile(name string, data []byte, append bool) error
	Remove(name string) error
	Stat(name string) FileType
	// ReadDir returns the sorted entry names of dir.
	ReadDir(dir string) ([]string, error)
	Getwd() string
	Chdir(dir string) error
	Abs(name string) string
}

type FileEntry struct {
	Data     []byte
	Created  time.Time
	Modified time.Time
}

// VirtualDisk is an in-memory FS. Paths are slash separated; relative paths
// resolve against the current directory, which starts at "/". Directories
// exist implicitly while they contain a file.
type VirtualDisk struct {
	Mu         sync.RWMutex
	Files      map[string]*FileEntry
	DirtyFiles map[string]bool
	UsedBytes  int
	Quota      int
	Dirty      bool
	cwd        string
}

// NewVirtualDisk creates an empty disk limited to quota bytes. A quota of
// zero or less selects MaxDiskBytes.
func NewVirtualDisk(quota int) *VirtualDisk {
	if quota <= 0 {
		quota = MaxDiskBytes
	}
	return &VirtualDisk{
		Files:      make(map[string]*FileEntry),
		DirtyFiles: make(map[string]bool),
		Quota:      quota,
		cwd:        "/",
	}
}

// resolve cleans name against the current directory and validates every
// segment. The caller holds the lock.
func (vd *VirtualDisk) resolve(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidFilename
	}
	raw := filepath.ToSlash(name)
	// Parent segments are refused before cleaning so no name can climb out
	// of the working directory.
	for _, seg := range strings.Split(raw, "/") {
		if seg == ".." {
			return "", ErrInvalidFilename
		}
	}
	p := path.Clean(path.Join(vd.cwd, raw))
	if strings.HasPrefix(raw, "/") {
		p = path.Clean(raw)
	}
	if p == "/" {
		return p, nil
	}
	for _, seg := range strings.Split(strings.TrimPrefix(p, "/"), "/") {
		if !validSegment.MatchString(seg) || seg == "." || seg == ".." {
			return "", ErrInvalidFilename
		}
	}
	return p, nil
}

// isDir reports whether some file lives below p. The caller holds the lock.
func (vd *VirtualDisk) isDir(p string) bool {
	if p == "/" {
		return true
	}
	prefix := p + "/"
	for name := range vd.Files {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// WriteFile checks the quota and deep copies the data. Overwriting a file
// adjusts the usage by the size difference.
func (vd *VirtualDisk) WriteFile(name string, data []byte, appendData bool) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	p, err := vd.resolve(name)
	if err != nil {
		return err
	}
	if p == "/" || vd.isDir(p) {
		return ErrInvalidFilename
	}

	oldSize := 0
	entry := vd.Files[p]
	var newData []byte
	if entry != nil {
		oldSize = len(entry.Data)
		if appendData {
			newData = append(newData, entry.Data...)
		}
	}
	newData = append(newData, data...)

	if vd.UsedBytes-oldSize+len(newData) > vd.Quota {
		return ErrQuotaExceeded
	}
	if entry == nil {
		entry = &FileEntry{Created: time.Now()}
		vd.Files[p] = entry
	}
	entry.Data = newData
	entry.Modified = time.Now()

	vd.DirtyFiles[p] = true
	vd.UsedBytes += len(newData) - oldSize
	vd.Dirty = true
	return nil
}

func (vd *VirtualDisk) ReadFile(name string) ([]byte, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	p, err := vd.resolve(name)
	if err != nil {
		return nil, err
	}
	entry, ok := vd.Files[p]
	if !ok {
		return nil, ErrFileNotFound
	}
	return append([]byte(nil), entry.Data...), nil
}

func (vd *VirtualDisk) Remove(name string) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	p, err := vd.resolve(name)
	if err != nil {
		return err
	}
	entry, ok := vd.Files[p]
	if !ok {
		return ErrFileNotFound
	}
	vd.UsedBytes -= len(entry.Data)
	delete(vd.Files, p)

	// Still dirty, so that PersistTo removes it from the host too.
	vd.DirtyFiles[p] = true
	vd.Dirty = true
	return nil
}

func (vd *VirtualDisk) Stat(name string) FileType {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	p, err := vd.resolve(name)
	if err != nil {
		return NotFound
	}
	if _, ok := vd.Files[p]; ok {
		return RegularFile
	}
	if vd.isDir(p) {
		return Directory
	}
	return NotFound
}

func (vd *VirtualDisk) ReadDir(dir string) ([]string, error) {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	p, err := vd.resolve(dir)
	if err != nil {
		return nil, err
	}
	if !vd.isDir(p) {
		if _, ok := vd.Files[p]; ok {
			return nil, ErrNotDirectory
		}
		return nil, ErrFileNotFound
	}
	prefix := strings.TrimSuffix(p, "/") + "/"
	seen := make(map[string]bool)
	for name := range vd.Files {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			seen[strings.SplitN(rest, "/", 2)[0]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (vd *VirtualDisk) Getwd() string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()
	return vd.cwd
}

func (vd *VirtualDisk) Chdir(dir string) error {
	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	p, err := vd.resolve(dir)
	if err != nil {
		return err
	}
	if !vd.isDir(p) {
		return ErrNotDirectory
	}
	vd.cwd = p
	return nil
}

// Abs returns the cleaned absolute form of name, or name itself when it is
// not a valid virtual path.
func (vd *VirtualDisk) Abs(name string) string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	p, err := vd.resolve(name)
	if err != nil {
		return name
	}
	return p
}

// FreeSpace returns the number of free bytes on the disk.
func (vd *VirtualDisk) FreeSpace() int {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()
	return vd.Quota - vd.UsedBytes
}

// List returns every file path on the disk, sorted.
func (vd *VirtualDisk) List() []string {
	vd.Mu.RLock()
	defer vd.Mu.RUnlock()

	keys := make([]string, 0, len(vd.Files))
	for k := range vd.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadFrom copies the regular files below a host directory onto the disk
// root. Files with names the disk cannot hold are skipped. A missing
// directory is not an error.
func (vd *VirtualDisk) LoadFrom(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	vd.Mu.Lock()
	defer vd.Mu.Unlock()

	return filepath.WalkDir(dir, func(hostPath string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, hostPath)
		if err != nil {
			return nil
		}
		p, err := vd.resolve("/" + filepath.ToSlash(rel))
		if err != nil {
			return nil
		}
		raw, err := os.ReadFile(hostPath)
		if err != nil {
			return nil
		}
		entry := &FileEntry{Data: raw, Created: time.Now(), Modified: time.Now()}
		if info, err := d.Info(); err == nil {
			entry.Created = info.ModTime()
			entry.Modified = info.ModTime()
		}
		if old, ok := vd.Files[p]; ok {
			vd.UsedBytes -= len(old.Data)
		}
		vd.Files[p] = entry
		vd.UsedBytes += len(raw)
		return nil
	})
}

// PersistTo writes every dirty file to the host directory and removes the
// ones deleted since the last persist. It returns the first error met.
func (vd *VirtualDisk) PersistTo(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Snapshot under the lock, then do the host I/O without it.
	vd.Mu.Lock()
	snapshot := make(map[string]*FileEntry)
	var deleted []string
	for name := range vd.DirtyFiles {
		if entry, ok := vd.Files[name]; ok {
			snapshot[name] = &FileEntry{
				Data:     append([]byte(nil), entry.Data...),
				Created:  entry.Created,
				Modified: entry.Modified,
			}
		} else {
			deleted = append(deleted, name)
		}
		delete(vd.DirtyFiles, name)
	}
	vd.Dirty = false
	vd.Mu.Unlock()

	var firstErr error
	for _, name := range deleted {
		err := os.Remove(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	for name, entry := range snapshot {
		hostPath := filepath.Join(dir, filepath.FromSlash(name))
		err := os.MkdirAll(filepath.Dir(hostPath), 0755)
		if err == nil {
			err = os.WriteFile(hostPath, entry.Data, 0644)
		}
		if err != nil {
			vd.Mu.Lock()
			vd.DirtyFiles[name] = true
			vd.Dirty = true
			vd.Mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		_ = os.Chtimes(hostPath, time.Now(), entry.Modified)
	}
	return firstErr
}
