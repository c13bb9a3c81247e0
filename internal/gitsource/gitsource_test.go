package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"https://github.com/u/notes.git", filepath.Join("repos", "github.com", "u", "notes"), false},
		{"http://example.com/team/deck", filepath.Join("repos", "example.com", "team", "deck"), false},
		{"git@github.com:u/notes.git", filepath.Join("repos", "github.com", "u", "notes"), false},
		{"not a url", "", true},
		{"git@github.com", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected an error, but got path '%s'", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LocalPath() returned an unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, got)
			}
		})
	}
}

func TestIsGitURL(t *testing.T) {
	for path, want := range map[string]bool{
		"https://github.com/u/notes": true,
		"git@github.com:u/notes.git": true,
		"/home/me/notes.git":         true,
		"/home/me/notes":             false,
		"./notes":                    false,
	} {
		if got := IsGitURL(path); got != want {
			t.Errorf("IsGitURL(%q) = %v, want %v", path, got, want)
		}
	}
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() returned an unexpected error: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add() returned an unexpected error: %v", err)
	}
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit() returned an unexpected error: %v", err)
	}
}

func TestSyncClonesThenPulls(t *testing.T) {
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	if err != nil {
		t.Fatalf("PlainInit() returned an unexpected error: %v", err)
	}
	commitFile(t, repo, origin, "one.md", "Q: One\nA: 1\n")

	checkout := filepath.Join(t.TempDir(), "checkout")
	ctx := context.Background()
	if err := Sync(ctx, origin, checkout, nil); err != nil {
		t.Fatalf("Sync() clone returned an unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout, "one.md")); err != nil {
		t.Fatalf("Expected cloned file, but got %v", err)
	}

	if err := Sync(ctx, origin, checkout, nil); err != nil {
		t.Fatalf("Sync() on an up-to-date checkout returned an unexpected error: %v", err)
	}

	commitFile(t, repo, origin, "two.md", "Q: Two\nA: 2\n")
	if err := Sync(ctx, origin, checkout, nil); err != nil {
		t.Fatalf("Sync() pull returned an unexpected error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout, "two.md")); err != nil {
		t.Errorf("Expected pulled file, but got %v", err)
	}
}
