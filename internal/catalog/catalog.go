// Package catalog selects candidate problems for a new match from the
// judge's public problemset.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cpduel/cpduel/internal/judge"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JudgeAPI is the slice of the judge client the catalog needs.
type JudgeAPI interface {
	Problemset(ctx context.Context) ([]judge.Problem, error)
	UserStatus(ctx context.Context, handle string) ([]judge.Submission, error)
}

type Service struct {
	api JudgeAPI
}

func NewService(api JudgeAPI) *Service {
	return &Service{api: api}
}

// Filter narrows the problemset for match creation.
type Filter struct {
	Tags      []string
	MinRating int
	MaxRating int
}

// Tags returns every distinct problem tag, sorted.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	problems, err := s.api.Problemset(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}

	seen := make(map[string]bool)
	for _, p := range problems {
		for _, tag := range p.Tags {
			seen[tag] = true
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags, nil
}

// Problems returns the problemset narrowed by the filter. A problem with
// any of the requested tags matches; no tags means no tag filtering.
func (s *Service) Problems(ctx context.Context, filter Filter) ([]judge.Problem, error) {
	if filter.MinRating <= 0 {
		filter.MinRating = 800
	}
	if filter.MaxRating <= 0 {
		filter.MaxRating = 3000
	}

	all, err := s.api.Problemset(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch problemset: %w", err)
	}

	var filtered []judge.Problem
	for _, p := range all {
		if p.Rating != 0 && (p.Rating < filter.MinRating || p.Rating > filter.MaxRating) {
			continue
		}
		if len(filter.Tags) > 0 && !hasAnyTag(p, filter.Tags) {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// ExcludeSolved removes problems any of the given players has already
// solved, so a match never includes a problem a participant can resubmit.
// A handle whose history cannot be fetched is skipped with a warning rather
// than failing selection.
func (s *Service) ExcludeSolved(ctx context.Context, problems []judge.Problem, handles []string) []judge.Problem {
	var mu sync.Mutex
	solved := make(map[string]bool)

	// Histories are independent per handle; the client's request window
	// keeps the judge's rate limit honored regardless of fan-out.
	g, ctx := errgroup.WithContext(ctx)
	for _, handle := range handles {
		g.Go(func() error {
			history, err := s.api.UserStatus(ctx, handle)
			if err != nil {
				zap.S().Warnf("could not fetch history for %s, not excluding their solves: %v", handle, err)
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for _, sub := range history {
				if sub.Verdict == "OK" {
					solved[problemKey(sub.Problem)] = true
				}
			}
			return nil
		})
	}
	g.Wait()

	var unsolved []judge.Problem
	for _, p := range problems {
		if !solved[problemKey(p)] {
			unsolved = append(unsolved, p)
		}
	}
	return unsolved
}

func problemKey(p judge.Problem) string {
	return fmt.Sprintf("%d-%s", p.ContestID, p.Index)
}

func hasAnyTag(p judge.Problem, tags []string) bool {
	for _, want := range tags {
		for _, have := range p.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}
