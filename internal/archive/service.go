// Package archive keeps a git history of the knowledge-base store. Each
// snapshot writes one JSON file per store key and commits the result.
package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	fileExt     = ".json"
	authorName  = "sopdesk"
	authorEmail = "archive@sopdesk.local"
)

var ErrUnknownSnapshot = errors.New("archive: unknown snapshot")

type Commit struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	dir     string
	exclude map[string]bool
	now     func() time.Time
	mu      sync.Mutex
}

// New archives into dir. Keys in exclude are never written.
func New(dir string, exclude ...string) *Service {
	skip := make(map[string]bool, len(exclude))
	for _, key := range exclude {
		skip[key] = true
	}
	return &Service{dir: dir, exclude: skip, now: time.Now}
}

// Snapshot writes entries and commits them. It returns false, with the
// current head, when nothing changed since the last snapshot.
func (s *Service) Snapshot(entries map[string][]byte, message string) (Commit, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return Commit{}, false, err
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Commit{}, false, fmt.Errorf("open worktree: %w", err)
	}

	keep := make(map[string]bool, len(entries))
	for key, value := range entries {
		if s.exclude[key] {
			continue
		}
		name := key + fileExt
		keep[name] = true
		if err := os.WriteFile(filepath.Join(s.dir, name), formatEntry(value), 0o644); err != nil {
			return Commit{}, false, fmt.Errorf("write %s: %w", name, err)
		}
		if _, err := worktree.Add(name); err != nil {
			return Commit{}, false, fmt.Errorf("git add %s: %w", name, err)
		}
	}

	existing, err := os.ReadDir(s.dir)
	if err != nil {
		return Commit{}, false, fmt.Errorf("list archive dir: %w", err)
	}
	for _, entry := range existing {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || keep[name] {
			continue
		}
		if _, err := worktree.Remove(name); err != nil {
			return Commit{}, false, fmt.Errorf("git rm %s: %w", name, err)
		}
	}

	status, err := worktree.Status()
	if err != nil {
		return Commit{}, false, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		head, err := s.head(repo)
		return head, false, err
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: s.now()},
	})
	if err != nil {
		return Commit{}, false, fmt.Errorf("commit snapshot: %w", err)
	}
	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return Commit{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toCommit(commitObj), true, nil
}

// History lists snapshots newest first. A limit of zero means all.
func (s *Service) History(limit int) ([]Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Commit{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]Commit, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommit(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Entries returns the store blobs recorded by a snapshot, keyed by store key.
func (s *Service) Entries(hash string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := s.open()
	if err != nil {
		return nil, err
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSnapshot, hash)
	}
	commitObj, err := repo.CommitObject(*resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSnapshot, hash)
	}
	files, err := commitObj.Files()
	if err != nil {
		return nil, fmt.Errorf("list commit files: %w", err)
	}

	entries := make(map[string][]byte)
	err = files.ForEach(func(file *object.File) error {
		if !strings.HasSuffix(file.Name, fileExt) {
			return nil
		}
		text, err := file.Contents()
		if err != nil {
			return fmt.Errorf("read %s: %w", file.Name, err)
		}
		entries[strings.TrimSuffix(file.Name, fileExt)] = compactEntry([]byte(text))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Keys lists the keys recorded by a snapshot in sorted order.
func Keys(entries map[string][]byte) []string {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (s *Service) open() (*git.Repository, error) {
	repo, err := git.PlainOpen(s.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open archive repo: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	repo, err = git.PlainInitWithOptions(s.dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		return nil, fmt.Errorf("init archive repo: %w", err)
	}
	return repo, nil
}

func (s *Service) head(repo *git.Repository) (Commit, error) {
	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Commit{}, nil
	}
	if err != nil {
		return Commit{}, fmt.Errorf("resolve head: %w", err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return Commit{}, fmt.Errorf("read head commit: %w", err)
	}
	return toCommit(commitObj), nil
}

func toCommit(commitObj *object.Commit) Commit {
	return Commit{
		Hash:      commitObj.Hash.String(),
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

// formatEntry indents JSON values so snapshots diff line by line. Other
// values are written as is.
func formatEntry(value []byte) []byte {
	var buf bytes.Buffer
	if json.Valid(value) && json.Indent(&buf, value, "", "  ") == nil {
		buf.WriteByte('\n')
		return buf.Bytes()
	}
	return value
}

func compactEntry(value []byte) []byte {
	var buf bytes.Buffer
	if json.Valid(value) && json.Compact(&buf, value) == nil {
		return buf.Bytes()
	}
	return value
}
