package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileFingerprint identifies a version of a source file by size and
// modification time.
type FileFingerprint struct {
	Size    int64
	ModTime time.Time
}

// Fingerprint stats a source file.
func Fingerprint(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileFingerprint{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// DBCache manages gob-serialized taxonomy databases on disk. Each named
// entry has a data file and a meta file recording the fingerprints of the
// source files it was built from:
//
//	<dir>/<name>.gob
//	<dir>/<name>.gob.meta
type DBCache struct {
	dir string
}

// NewDBCache creates a database cache rooted at the given directory.
func NewDBCache(dir string) *DBCache {
	return &DBCache{dir: dir}
}

func (c *DBCache) gobPath(name string) string {
	return filepath.Join(c.dir, name+".gob")
}

func (c *DBCache) metaPath(name string) string {
	return filepath.Join(c.dir, name+".gob.meta")
}

// Valid checks whether the cached entry matches the current source files.
func (c *DBCache) Valid(name string, sources ...FileFingerprint) bool {
	meta, err := c.readMeta(name)
	if err != nil {
		return false
	}
	if meta["sources"] != strconv.Itoa(len(sources)) {
		return false
	}
	for i, fp := range sources {
		prefix := "src" + strconv.Itoa(i)
		if meta[prefix+"_size"] != strconv.FormatInt(fp.Size, 10) {
			return false
		}
		if meta[prefix+"_modtime"] != fp.ModTime.UTC().Format(time.RFC3339Nano) {
			return false
		}
	}
	if _, err := os.Stat(c.gobPath(name)); err != nil {
		return false
	}
	return true
}

// Load decodes the cached entry into v, which must be a pointer to the
// backend's snapshot type.
func (c *DBCache) Load(name string, v any) error {
	f, err := os.Open(c.gobPath(name))
	if err != nil {
		return fmt.Errorf("open database cache: %w", err)
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode database cache: %w", err)
	}
	return nil
}

// Save serializes v and records the source fingerprints. A failed encode
// removes the partial file so a stale cache never validates.
func (c *DBCache) Save(name string, v any, sources ...FileFingerprint) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	f, err := os.Create(c.gobPath(name))
	if err != nil {
		return fmt.Errorf("create database cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(c.gobPath(name))
		return fmt.Errorf("encode database cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close database cache: %w", err)
	}

	return c.writeMeta(name, sources)
}

// Clear removes the cached entry.
func (c *DBCache) Clear(name string) {
	os.Remove(c.gobPath(name))
	os.Remove(c.metaPath(name))
}

func (c *DBCache) writeMeta(name string, sources []FileFingerprint) error {
	lines := []string{"sources=" + strconv.Itoa(len(sources))}
	for i, fp := range sources {
		prefix := "src" + strconv.Itoa(i)
		lines = append(lines,
			prefix+"_size="+strconv.FormatInt(fp.Size, 10),
			prefix+"_modtime="+fp.ModTime.UTC().Format(time.RFC3339Nano),
		)
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(c.metaPath(name), []byte(strings.Join(lines, "\n")), 0644)
}

func (c *DBCache) readMeta(name string) (map[string]string, error) {
	data, err := os.ReadFile(c.metaPath(name))
	if err != nil {
		return nil, err
	}
	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
