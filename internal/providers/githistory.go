package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultMaxCommits   = 50
	defaultCacheSize    = 256
	defaultMinCoChanges = 2
)

// gitHistoryEntry is the cached result for one path: recent commits and the
// set of files that tend to change alongside it.
type gitHistoryEntry struct {
	path       string
	commits    []commitSummary
	coChanged  []coChangeEntry
	computedAt time.Time
}

type commitSummary struct {
	Hash    string
	Message string
	Author  string
	When    time.Time
}

type coChangeEntry struct {
	Path  string
	Count int
}

// GitHistoryProvider answers "what happened to this file" queries: recent
// commits, and files that historically change alongside it. Grounded on
// ferg-cod3s-conexus's internal/mcp/git_helper.go go-git usage (PlainOpen,
// bounded Log iteration, commit.Patch diff stats), generalized from a
// ticket-ID search into a per-path history/co-change lookup and given an
// LRU result cache per internal/catalog's own caching conventions.
type GitHistoryProvider struct {
	repo         *git.Repository
	cache        *lru.Cache[string, gitHistoryEntry]
	maxCommits   int
	minCoChanges int
	mu           sync.Mutex
}

// NewGitHistoryProvider opens the git repository rooted at repoPath. cacheSize
// bounds the number of distinct paths whose history is memoized at once.
func NewGitHistoryProvider(repoPath string, cacheSize int) (*GitHistoryProvider, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, gitHistoryEntry](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create history cache: %w", err)
	}
	return &GitHistoryProvider{
		repo:         repo,
		cache:        cache,
		maxCommits:   defaultMaxCommits,
		minCoChanges: defaultMinCoChanges,
	}, nil
}

func (p *GitHistoryProvider) ID() string { return "git-history" }

// ClearCache invalidates all memoized per-path history, forcing the next
// GetContext call to recompute from the git log.
func (p *GitHistoryProvider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache.Purge()
}

func (p *GitHistoryProvider) GetContext(ctx context.Context, query string, scope ContextScope, budget TokenBudget) ([]ContextSnippet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths := scope.Paths
	if len(paths) == 0 && strings.TrimSpace(query) != "" {
		paths = []string{strings.TrimSpace(query)}
	}
	if len(paths) == 0 {
		return nil, nil
	}

	var snippets []ContextSnippet
	usedTokens := 0
	available := budget.AvailableForSnippets()
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := p.historyFor(path)
		if err != nil || len(entry.commits) == 0 {
			continue
		}
		text := formatHistory(entry)
		tokens := estimateTokens(text)
		if available > 0 && usedTokens+tokens > available {
			break
		}
		usedTokens += tokens
		snippets = append(snippets, ContextSnippet{
			ChunkID:  "git-history:" + path,
			Score:    1.0,
			FilePath: path,
			Kind:     "git_history",
			Text:     text,
			Provider: p.ID(),
			Sources:  []string{p.ID()},
		})
	}
	for i := range snippets {
		snippets[i].SourceCount = len(snippets[i].Sources)
	}
	return snippets, nil
}

func (p *GitHistoryProvider) historyFor(path string) (gitHistoryEntry, error) {
	p.mu.Lock()
	if entry, ok := p.cache.Get(path); ok {
		p.mu.Unlock()
		return entry, nil
	}
	p.mu.Unlock()

	entry, err := p.computeHistory(path)
	if err != nil {
		return gitHistoryEntry{}, err
	}

	p.mu.Lock()
	p.cache.Add(path, entry)
	p.mu.Unlock()
	return entry, nil
}

func (p *GitHistoryProvider) computeHistory(path string) (gitHistoryEntry, error) {
	commitIter, err := p.repo.Log(&git.LogOptions{
		Order:    git.LogOrderCommitterTime,
		FileName: &path,
	})
	if err != nil {
		return gitHistoryEntry{}, fmt.Errorf("log %s: %w", path, err)
	}

	entry := gitHistoryEntry{path: path, computedAt: time.Now()}
	coChangeCounts := make(map[string]int)
	count := 0
	stopErr := fmt.Errorf("stop")

	err = commitIter.ForEach(func(c *object.Commit) error {
		if count >= p.maxCommits {
			return stopErr
		}
		count++
		entry.commits = append(entry.commits, commitSummary{
			Hash:    c.Hash.String()[:12],
			Message: strings.TrimSpace(strings.SplitN(c.Message, "\n", 2)[0]),
			Author:  c.Author.Name,
			When:    c.Author.When,
		})

		if c.NumParents() == 0 {
			return nil
		}
		parent, err := c.Parent(0)
		if err != nil {
			return nil
		}
		changes, err := c.Patch(parent)
		if err != nil {
			return nil
		}
		for _, stat := range changes.Stats() {
			if stat.Name == path {
				continue
			}
			coChangeCounts[stat.Name]++
		}
		return nil
	})
	if err != nil && err != stopErr {
		return gitHistoryEntry{}, fmt.Errorf("iterate commits for %s: %w", path, err)
	}

	for name, n := range coChangeCounts {
		if n >= p.minCoChanges {
			entry.coChanged = append(entry.coChanged, coChangeEntry{Path: name, Count: n})
		}
	}
	sort.Slice(entry.coChanged, func(i, j int) bool { return entry.coChanged[i].Count > entry.coChanged[j].Count })
	if len(entry.coChanged) > 10 {
		entry.coChanged = entry.coChanged[:10]
	}

	return entry, nil
}

func formatHistory(entry gitHistoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recent history for %s:\n", entry.path)
	for _, c := range entry.commits {
		fmt.Fprintf(&b, "  %s %s — %s (%s)\n", c.Hash, c.When.Format("2006-01-02"), c.Message, c.Author)
	}
	if len(entry.coChanged) > 0 {
		b.WriteString("Frequently co-changed with:\n")
		for _, cc := range entry.coChanged {
			fmt.Fprintf(&b, "  %s (%d commits)\n", cc.Path, cc.Count)
		}
	}
	return b.String()
}
