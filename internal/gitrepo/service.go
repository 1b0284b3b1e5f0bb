// Package gitrepo keeps the revision history of each minutes record in its
// own git repository: the canonical text in ata.md and the section model in
// document.json.
package gitrepo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	textFile     = "ata.md"
	documentFile = "document.json"
	branch       = "main"
)

// ErrNoHistory is returned for records that were never committed.
var ErrNoHistory = errors.New("minutes record has no history")

// Content is one revision of a minutes record.
type Content struct {
	Text     string          `json:"text"`
	Document json.RawMessage `json:"document,omitempty"`
}

type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Added     int       `json:"added"`
	Removed   int       `json:"removed"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Commit records content as the newest revision, creating the repository on
// first use. When nothing changed it returns the current head and false.
func (s *Service) Commit(minutesID string, content Content, author, message string) (CommitInfo, bool, error) {
	lock := s.recordLock(minutesID)
	lock.Lock()
	defer lock.Unlock()

	repo, fresh, err := s.openOrInit(minutesID)
	if err != nil {
		return CommitInfo{}, false, err
	}

	if !fresh {
		head, err := headCommit(repo)
		if err != nil {
			return CommitInfo{}, false, err
		}
		current, err := readContentFromCommit(head)
		if err != nil {
			return CommitInfo{}, false, err
		}
		if !HasChanges(current, content) {
			return toCommitInfo(head), false, nil
		}
		if err := checkoutMain(repo); err != nil {
			return CommitInfo{}, false, err
		}
	}

	hash, err := writeAndCommit(repo, content, author, message)
	if err != nil {
		return CommitInfo{}, false, err
	}
	if fresh {
		if err := pointMainAt(repo, hash); err != nil {
			return CommitInfo{}, false, err
		}
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), true, nil
}

func (s *Service) Head(minutesID string) (Content, CommitInfo, error) {
	lock := s.recordLock(minutesID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(minutesID)
	if err != nil {
		return Content{}, CommitInfo{}, err
	}
	commitObj, err := headCommit(repo)
	if err != nil {
		return Content{}, CommitInfo{}, err
	}
	content, err := readContentFromCommit(commitObj)
	if err != nil {
		return Content{}, CommitInfo{}, err
	}
	return content, toCommitInfo(commitObj), nil
}

// Revision returns the content at hash (full or abbreviated), its commit
// info and the unified diff of ata.md against the parent revision.
func (s *Service) Revision(minutesID, hash string) (Content, CommitInfo, string, error) {
	lock := s.recordLock(minutesID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(minutesID)
	if err != nil {
		return Content{}, CommitInfo{}, "", err
	}
	resolvedHash, err := resolveHash(repo, hash)
	if err != nil {
		return Content{}, CommitInfo{}, "", err
	}
	commitObj, err := repo.CommitObject(resolvedHash)
	if err != nil {
		return Content{}, CommitInfo{}, "", fmt.Errorf("read commit %s: %w", hash, err)
	}
	content, err := readContentFromCommit(commitObj)
	if err != nil {
		return Content{}, CommitInfo{}, "", err
	}
	diff, err := textDiff(commitObj)
	if err != nil {
		return Content{}, CommitInfo{}, "", err
	}
	return content, toCommitInfo(commitObj), diff, nil
}

// History lists revisions newest first. A limit of zero means all.
func (s *Service) History(minutesID string, limit int) ([]CommitInfo, error) {
	lock := s.recordLock(minutesID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.open(minutesID)
	if errors.Is(err, ErrNoHistory) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, err
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0)
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
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

// Remove deletes the repository of a minutes record.
func (s *Service) Remove(minutesID string) error {
	lock := s.recordLock(minutesID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(minutesID)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) repoPath(minutesID string) string {
	return filepath.Join(s.baseDir, filepath.Base(minutesID))
}

func (s *Service) recordLock(minutesID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[minutesID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[minutesID] = lock
	return lock
}

func (s *Service) open(minutesID string) (*git.Repository, error) {
	repo, err := git.PlainOpen(s.repoPath(minutesID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

func (s *Service) openOrInit(minutesID string) (*git.Repository, bool, error) {
	repo, err := s.open(minutesID)
	if err == nil {
		return repo, false, nil
	}
	if !errors.Is(err, ErrNoHistory) {
		return nil, false, err
	}

	path := s.repoPath(minutesID)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, false, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, false, fmt.Errorf("init repo: %w", err)
	}
	return repo, true, nil
}

func headCommit(repo *git.Repository) (*object.Commit, error) {
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, ErrNoHistory
	}
	if err != nil {
		return nil, fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit object: %w", err)
	}
	return commitObj, nil
}

func pointMainAt(repo *git.Repository, hash plumbing.Hash) error {
	mainRef := plumbing.NewBranchReferenceName(branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(mainRef, hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, mainRef)); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

func checkoutMain(repo *git.Repository) error {
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch), Force: true}); err != nil {
		return fmt.Errorf("checkout branch %s: %w", branch, err)
	}
	return nil
}

func writeAndCommit(repo *git.Repository, content Content, author, message string) (plumbing.Hash, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("open worktree: %w", err)
	}
	root := worktree.Filesystem.Root()

	if err := os.WriteFile(filepath.Join(root, textFile), []byte(content.Text), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", textFile, err)
	}
	document := normalizeDoc(content.Document)
	if document == nil {
		document = []byte("null")
	}
	if err := os.WriteFile(filepath.Join(root, documentFile), append(document, '\n'), 0o644); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write %s: %w", documentFile, err)
	}

	for _, name := range []string{textFile, documentFile} {
		if _, err := worktree.Add(name); err != nil {
			return plumbing.ZeroHash, fmt.Errorf("git add %s: %w", name, err)
		}
	}

	if strings.TrimSpace(message) == "" {
		message = "Atualiza ata"
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@atas.local", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("commit content: %w", err)
	}
	return hash, nil
}

func readFile(commitObj *object.Commit, name string) ([]byte, error) {
	file, err := commitObj.File(name)
	if err != nil {
		return nil, fmt.Errorf("load %s from commit: %w", name, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("open %s reader: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func readContentFromCommit(commitObj *object.Commit) (Content, error) {
	text, err := readFile(commitObj, textFile)
	if err != nil {
		return Content{}, err
	}
	document, err := readFile(commitObj, documentFile)
	if err != nil {
		return Content{}, err
	}

	content := Content{Text: string(text)}
	document = bytes.TrimSpace(document)
	if !bytes.Equal(document, []byte("null")) {
		content.Document = json.RawMessage(document)
	}
	return content, nil
}

// textDiff is the unified diff of ata.md introduced by commitObj.
func textDiff(commitObj *object.Commit) (string, error) {
	var parent *object.Commit
	if commitObj.NumParents() > 0 {
		p, err := commitObj.Parent(0)
		if err != nil {
			return "", fmt.Errorf("load parent commit: %w", err)
		}
		parent = p
	}

	var fromTree *object.Tree
	if parent != nil {
		t, err := parent.Tree()
		if err != nil {
			return "", fmt.Errorf("load parent tree: %w", err)
		}
		fromTree = t
	}
	toTree, err := commitObj.Tree()
	if err != nil {
		return "", fmt.Errorf("load tree: %w", err)
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return "", fmt.Errorf("diff trees: %w", err)
	}
	var out strings.Builder
	for _, change := range changes {
		if change.To.Name != textFile && change.From.Name != textFile {
			continue
		}
		patch, err := change.Patch()
		if err != nil {
			return "", fmt.Errorf("build patch: %w", err)
		}
		out.WriteString(patch.String())
	}
	return out.String(), nil
}

// HasChanges compares text exactly and documents structurally.
func HasChanges(from, to Content) bool {
	if from.Text != to.Text {
		return true
	}
	return !bytes.Equal(normalizeDoc(from.Document), normalizeDoc(to.Document))
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	info := CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.TrimSpace(commitObj.Message),
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
	if stats, err := commitObj.Stats(); err == nil {
		for _, stat := range stats {
			if stat.Name == textFile {
				info.Added = stat.Addition
				info.Removed = stat.Deletion
			}
		}
	}
	return info
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}

func normalizeDoc(doc json.RawMessage) []byte {
	if len(doc) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil
	}
	if parsed == nil {
		return nil
	}
	normalized, err := json.Marshal(parsed)
	if err != nil {
		return nil
	}
	return normalized
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
