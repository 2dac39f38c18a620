package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/truescope/internal/claims"
	"github.com/ppiankov/truescope/internal/model"
)

// maxLineBytes bounds one import line; the longest valid text claim fits well inside it
const maxLineBytes = 1 << 20

// Entry is one claim parsed from an import file
type Entry struct {
	Line    int
	Kind    model.Kind
	Content string
	Tags    []string
}

// Input converts the entry into a create request
func (e Entry) Input() claims.CreateInput {
	in := claims.CreateInput{Type: string(e.Kind), Tags: e.Tags}
	if e.Kind == model.KindURL {
		in.URL = e.Content
	} else {
		in.Text = e.Content
	}
	return in
}

// ReadEntries parses one claim per line. Blank lines and lines starting with
// # are skipped and repeated content is dropped. A tab separates the claim
// from an optional comma-separated tag list.
func ReadEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Text()
		if trimmed := strings.TrimSpace(raw); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		content, tagList, _ := strings.Cut(raw, "\t")
		content = strings.TrimSpace(content)
		if content == "" || seen[content] {
			continue
		}
		seen[content] = true

		var tags []string
		if tagList = strings.TrimSpace(tagList); tagList != "" {
			tags = strings.Split(tagList, ",")
		}

		entries = append(entries, Entry{
			Line:    line,
			Kind:    Classify(content),
			Content: content,
			Tags:    tags,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan line %d: %w", line+1, err)
	}
	return entries, nil
}

// ReadEntriesFromFile opens path and parses it with ReadEntries
func ReadEntriesFromFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadEntries(f)
}

// Classify treats absolute http(s) URLs as URL claims and anything else as text
func Classify(content string) model.Kind {
	if strings.ContainsAny(content, " \t") {
		return model.KindText
	}
	u, err := url.Parse(content)
	if err != nil || u.Host == "" {
		return model.KindText
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return model.KindURL
	}
	return model.KindText
}

// Creator is the subset of the claims service an import needs
type Creator interface {
	Create(ctx context.Context, id *model.Identity, in claims.CreateInput) (*model.Claim, error)
}

// ImportResult is the outcome for one entry
type ImportResult struct {
	Entry Entry
	Claim *model.Claim
	Err   error
}

// ImportProcessor creates claims from entries concurrently
type ImportProcessor struct {
	creator     Creator
	actor       *model.Identity
	concurrency int
}

// NewImportProcessor creates claims as actor using at most concurrency workers
func NewImportProcessor(creator Creator, actor *model.Identity, concurrency int) *ImportProcessor {
	return &ImportProcessor{
		creator:     creator,
		actor:       actor,
		concurrency: concurrency,
	}
}

// Process creates one claim per entry. Results come back ordered by line;
// entries never attempted because ctx ended carry ctx's error.
func (p *ImportProcessor) Process(ctx context.Context, entries []Entry) []ImportResult {
	if len(entries) == 0 {
		return []ImportResult{}
	}

	pool := NewPool[ImportResult](ctx, p.concurrency)
	pool.Start()

	for _, e := range entries {
		e := e // per-iteration copy; go.mod targets Go 1.21 loop semantics
		ok := pool.Submit(func(ctx context.Context) ImportResult {
			c, err := p.creator.Create(ctx, p.actor, e.Input())
			return ImportResult{Entry: e, Claim: c, Err: err}
		})
		if !ok {
			pool.Shutdown()
			break
		}
	}

	results := pool.Wait()

	// Tasks still queued when ctx ended never ran
	done := make(map[int]bool, len(results))
	for _, r := range results {
		done[r.Entry.Line] = true
	}
	for _, e := range entries {
		if !done[e.Line] {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			results = append(results, ImportResult{Entry: e, Err: err})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Entry.Line < results[j].Entry.Line })
	return results
}

// Summarize counts successes and failures
func Summarize(results []ImportResult) (created, failed int) {
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			created++
		}
	}
	return created, failed
}
