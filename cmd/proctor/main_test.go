package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pavelanni/proctor/internal/draft"
	"github.com/pavelanni/proctor/internal/store"
)

func TestViperEnvOverride(t *testing.T) {
	t.Setenv("PROCTOR_TIME_LIMIT", "45m")
	t.Setenv("PROCTOR_STORE", "memory")

	cmd := takeCmd()
	v := viperForCmd(cmd)
	if got := v.GetDuration("time-limit"); got != 45*time.Minute {
		t.Errorf("expected 45m, got %v", got)
	}
	if got := v.GetString("store"); got != "memory" {
		t.Errorf("expected memory, got %q", got)
	}
	if got := v.GetString("capture"); got != "auto" {
		t.Errorf("expected flag default auto, got %q", got)
	}
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		store   string
		wantDB  bool
		wantErr bool
	}{
		{"sqlite", true, false},
		{"file", false, false},
		{"memory", false, false},
		{"redis", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			cmd := takeCmd()
			_ = cmd.Flags().Set("store", tt.store)
			_ = cmd.Flags().Set("db", dir+"/proctor.db")
			_ = cmd.Flags().Set("drafts-dir", dir+"/drafts")

			b, err := openBackend(viperForCmd(cmd))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer b.Close()
			if (b.db != nil) != tt.wantDB {
				t.Errorf("expected sqlite handle %v, got %v", tt.wantDB, b.db != nil)
			}
			if b.drafts == nil {
				t.Error("expected a draft store")
			}
		})
	}
}

func TestRememberAndResolveTarget(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	if u, q := resolveTarget(ctx, "", "", db); u != "" || q != "" {
		t.Errorf("expected empty target, got %q %q", u, q)
	}
	rememberTarget(ctx, db, "s1", "q1")
	if u, q := resolveTarget(ctx, "", "", db); u != "s1" || q != "q1" {
		t.Errorf("expected s1 q1, got %q %q", u, q)
	}
	if u, q := resolveTarget(ctx, "i2", "", db); u != "i2" || q != "q1" {
		t.Errorf("expected explicit user kept, got %q %q", u, q)
	}
	if u, q := resolveTarget(ctx, "", "", nil); u != "" || q != "" {
		t.Errorf("expected nothing without db, got %q %q", u, q)
	}
}

func TestQuestionsCommand(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"questions", "--log-level", "error"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "q1") || !strings.Contains(out.String(), "Two Sum") {
		t.Errorf("expected default bank listed, got:\n%s", out.String())
	}
}

func TestDraftsCommands(t *testing.T) {
	dir := t.TempDir()
	fs, err := draft.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec := draft.NewRecord(draft.Key("q1"), "class Solution {}", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	if err := fs.Put(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		root := rootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		argv := append([]string{"drafts"}, args...)
		root.SetArgs(append(argv, "--store", "file", "--drafts-dir", dir, "--log-level", "error"))
		if err := root.Execute(); err != nil {
			t.Fatalf("drafts %v: %v", args, err)
		}
		return out.String()
	}

	if got := run("list"); !strings.Contains(got, "q1") {
		t.Errorf("expected q1 listed, got:\n%s", got)
	}
	if got := run("show", "q1"); strings.TrimSpace(got) != "class Solution {}" {
		t.Errorf("expected draft text, got %q", got)
	}
	if got := run("export"); !strings.Contains(got, "class Solution {}") {
		t.Errorf("expected draft in export, got:\n%s", got)
	}
	run("clear", "q1")
	if _, err := fs.Get(context.Background(), draft.Key("q1")); err == nil {
		t.Error("expected draft cleared")
	}
}
