package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apppkg "github.com/hyperifyio/patchday/internal/app"
)

const page = `<html><body>
<div class="PatchNoteHero_a1">
  <div class="HeroName_b2">Axe</div>
  <div class="NotesSection_c3"><div class="PatchNote_d4">Base armor increased by 1</div></div>
</div>
</body></html>`

// Smoke test: run writes the thread and one comment in dry-run mode.
func TestRun_DryRun_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "7.36.html")
	if err := os.WriteFile(in, []byte(page), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	cfg := apppkg.Config{
		InputPath: in,
		OutputDir: filepath.Join(dir, "out"),
		DryRun:    true,
	}
	if err := run(context.Background(), cfg); err != nil {
		t.Fatalf("run error: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "out", "comment-001.md"))
	if err != nil {
		t.Fatalf("expected comment file: %v", err)
	}
	if !strings.HasPrefix(string(b), "# [](/hero-axe) Axe") {
		t.Fatalf("unexpected comment:\n%s", b)
	}
	thread, err := os.ReadFile(filepath.Join(dir, "out", "thread.md"))
	if err != nil || !strings.HasPrefix(string(thread), "# Patch 7.36 - Hero Changes Discussion") {
		t.Fatalf("unexpected thread: %q %v", thread, err)
	}
}

func TestRun_NoHeroSection_Error(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.html")
	if err := os.WriteFile(in, []byte("<html><body><p>Item Updates</p></body></html>"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	err := run(context.Background(), apppkg.Config{InputPath: in, OutputDir: filepath.Join(dir, "out"), DryRun: true})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out", "thread.md")); !os.IsNotExist(statErr) {
		t.Fatalf("nothing should be written before extraction succeeds")
	}
}

func TestClassFlag(t *testing.T) {
	c := classFlag{}
	if err := c.Set("entity = PatchHero"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if c["entity"] != "PatchHero" {
		t.Fatalf("got %v", c)
	}
	for _, bad := range []string{"entity", "=X", "entity="} {
		if err := c.Set(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestBuildConfig_Layering(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "patchday.yaml")
	yml := "version: \"7.30\"\nlinkPrefix: entity\nreddit:\n  subreddit: fromfile\ncache:\n  dir: file-cache\n"
	if err := os.WriteFile(cfgPath, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATCH_VERSION", "7.31")
	t.Setenv("SUBREDDIT", "")
	t.Setenv("CACHE_DIR", "")

	flags := apppkg.Config{Version: "7.32", Subreddit: "DotA2", CacheDir: ".patchday-cache", OutputDir: "out"}

	// flag set explicitly wins over env and file
	cfg, err := buildConfig(flags, cfgPath, map[string]bool{"patch": true})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Version != "7.32" {
		t.Fatalf("explicit flag should win, got %q", cfg.Version)
	}
	if cfg.LinkPrefix != "entity" || cfg.Subreddit != "fromfile" || cfg.CacheDir != "file-cache" {
		t.Fatalf("file should fill defaults: %+v", cfg)
	}

	// env wins over file when the flag was not given
	flags.Version = ""
	cfg, err = buildConfig(flags, cfgPath, map[string]bool{})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Version != "7.31" {
		t.Fatalf("env should win over file, got %q", cfg.Version)
	}

	if _, err := buildConfig(flags, filepath.Join(dir, "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestBuildConfig_EnvWithoutConfigFile(t *testing.T) {
	t.Setenv("PATCH_VERSION", "")
	t.Setenv("SUBREDDIT", "patchdaytest")
	t.Setenv("CACHE_DIR", "/tmp/env-cache")
	flags := apppkg.Config{Version: "7.32", Subreddit: "DotA2", CacheDir: ".patchday-cache", OutputDir: "out"}

	cfg, err := buildConfig(flags, "", map[string]bool{})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Subreddit != "patchdaytest" || cfg.CacheDir != "/tmp/env-cache" {
		t.Fatalf("env should replace flag defaults: subreddit=%q cacheDir=%q", cfg.Subreddit, cfg.CacheDir)
	}
	if cfg.Version != "7.32" {
		t.Fatalf("unset env should keep flag values, got %q", cfg.Version)
	}

	cfg, err = buildConfig(flags, "", map[string]bool{"subreddit": true})
	if err != nil {
		t.Fatalf("buildConfig: %v", err)
	}
	if cfg.Subreddit != "DotA2" {
		t.Fatalf("explicit -subreddit should win over env, got %q", cfg.Subreddit)
	}
}
