package app

import (
	"sort"
	"sync"
	"time"

	"trivia-board-service/internal/domain"
)

// Scoreboard fans out team standings to live subscribers.
type Scoreboard struct {
	now func() time.Time

	mu          sync.Mutex
	current     domain.Scoreboard
	subscribers map[chan domain.Scoreboard]struct{}
}

// NewScoreboard returns an empty scoreboard.
func NewScoreboard() *Scoreboard {
	return NewScoreboardWithClock(time.Now)
}

// NewScoreboardWithClock is test-only for deterministic timestamps.
func NewScoreboardWithClock(now func() time.Time) *Scoreboard {
	return &Scoreboard{
		now:         now,
		current:     domain.Scoreboard{Standings: []domain.Standing{}, UpdatedAt: now()},
		subscribers: make(map[chan domain.Scoreboard]struct{}),
	}
}

// Publish ranks teams and pushes the snapshot to every subscriber.
func (s *Scoreboard) Publish(teams []domain.Team) domain.Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.Scoreboard{
		Standings: Rank(teams),
		UpdatedAt: s.now(),
	}
	for ch := range s.subscribers {
		select {
		case ch <- s.current:
		default:
			// drop the stale snapshot so a slow reader always gets the latest
			select {
			case <-ch:
			default:
			}
			ch <- s.current
		}
	}
	return s.current
}

// Snapshot returns the last published standings.
func (s *Scoreboard) Snapshot() domain.Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe returns a channel that receives the current snapshot and every
// later one. The caller must invoke the returned cancel function to avoid leaks.
func (s *Scoreboard) Subscribe() (<-chan domain.Scoreboard, func()) {
	ch := make(chan domain.Scoreboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.current
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Rank orders teams by score desc, then name, then id. Tied scores share a rank.
func Rank(teams []domain.Team) []domain.Standing {
	sorted := make([]domain.Team, len(teams))
	copy(sorted, teams)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})

	standings := make([]domain.Standing, 0, len(sorted))
	for i, team := range sorted {
		rank := i + 1
		if i > 0 && sorted[i-1].Score == team.Score {
			rank = standings[i-1].Rank
		}
		standings = append(standings, domain.Standing{
			TeamID: team.ID,
			Name:   team.Name,
			Score:  team.Score,
			Rank:   rank,
		})
	}
	return standings
}
