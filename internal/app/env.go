package app

import (
    "bufio"
    "errors"
    "fmt"
    "os"
    "strings"
)

// LoadEnvFiles reads dotenv files of KEY=VALUE lines into the process
// environment so Reddit credentials can live outside the config file.
// Missing files are skipped. Later files override earlier ones, but a
// non-empty variable exported by the shell is never replaced.
func LoadEnvFiles(paths ...string) error {
    fromFiles := map[string]bool{}
    for _, p := range paths {
        if strings.TrimSpace(p) == "" {
            continue
        }
        vars, err := readEnvFile(p)
        if errors.Is(err, os.ErrNotExist) {
            continue
        }
        if err != nil {
            return err
        }
        for _, kv := range vars {
            if os.Getenv(kv[0]) != "" && !fromFiles[kv[0]] {
                continue
            }
            if err := os.Setenv(kv[0], kv[1]); err != nil {
                return fmt.Errorf("%s: set %s: %w", p, kv[0], err)
            }
            fromFiles[kv[0]] = true
        }
    }
    return nil
}

// readEnvFile returns the assignments of one dotenv file in file order.
func readEnvFile(path string) ([][2]string, error) {
    f, err := os.Open(path)
    if err != nil {
        return nil, err
    }
    defer f.Close()

    var out [][2]string
    scanner := bufio.NewScanner(f)
    for n := 1; scanner.Scan(); n++ {
        line := strings.TrimSpace(scanner.Text())
        if line == "" || strings.HasPrefix(line, "#") {
            continue
        }
        line = strings.TrimPrefix(line, "export ")
        key, val, ok := strings.Cut(line, "=")
        key = strings.TrimSpace(key)
        if !ok || key == "" || strings.ContainsAny(key, " \t") {
            return nil, fmt.Errorf("%s:%d: expected KEY=VALUE", path, n)
        }
        out = append(out, [2]string{key, envValue(strings.TrimSpace(val))})
    }
    if err := scanner.Err(); err != nil {
        return nil, fmt.Errorf("%s: %w", path, err)
    }
    return out, nil
}

// envValue unquotes a value; unquoted values may carry a trailing " #" comment.
func envValue(v string) string {
    if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
        return v[1 : len(v)-1]
    }
    if i := strings.Index(v, " #"); i >= 0 {
        v = strings.TrimSpace(v[:i])
    }
    return v
}
