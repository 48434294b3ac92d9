package cache

import (
    "encoding/json"
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "strings"
    "time"
)

// ClearDir deletes every page entry (meta, body and leftover temp files) in
// dir and returns how many files were removed. Other files are kept, so the
// cache may share a directory. A missing dir is not an error.
func ClearDir(dir string) (int, error) {
    if strings.TrimSpace(dir) == "" {
        return 0, errors.New("empty dir")
    }
    entries, err := os.ReadDir(dir)
    if errors.Is(err, fs.ErrNotExist) {
        return 0, nil
    }
    if err != nil {
        return 0, err
    }
    removed := 0
    for _, e := range entries {
        if e.IsDir() || !isCacheFile(e.Name()) {
            continue
        }
        if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
            return removed, err
        }
        removed++
    }
    return removed, nil
}

func isCacheFile(name string) bool {
    for _, suffix := range []string{".meta.json", ".meta.json.tmp", ".body"} {
        if strings.HasSuffix(name, suffix) {
            return true
        }
    }
    return false
}

// PurgeByAge removes page entries older than maxAge, judged by the SavedAt
// field of each <key>.meta.json. Unreadable or malformed metadata is left
// alone. Returns the number of entries removed.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
        return 0, nil
    }
    now := time.Now().UTC()
    removed := 0
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            return err
        }
        if d.IsDir() || !strings.HasSuffix(d.Name(), ".meta.json") {
            return nil
        }
        b, err := os.ReadFile(path)
        if err != nil {
            return nil
        }
        var e Entry
        if err := json.Unmarshal(b, &e); err != nil {
            return nil
        }
        if e.Age(now) <= maxAge {
            return nil
        }
        removed++
        _ = os.Remove(path)
        _ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
        return nil
    })
    return removed, err
}
