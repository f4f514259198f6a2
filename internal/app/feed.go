package app

import (
	"sync"

	"codegaming-service/internal/domain"
)

// Feed fans reported results out to subscribers. Live leaderboard views
// subscribe and refetch their page whenever a result lands.
type Feed struct {
	mu   sync.Mutex
	subs map[chan domain.SessionResult]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan domain.SessionResult]struct{})}
}

// Subscribe returns a channel of reported results. The caller must invoke
// the returned cancel function to avoid leaks.
func (f *Feed) Subscribe() (<-chan domain.SessionResult, func()) {
	ch := make(chan domain.SessionResult, 8)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a result to every subscriber. A full subscriber drops its
// oldest pending event so a slow client cannot block the publisher.
func (f *Feed) Publish(result domain.SessionResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- result:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- result
		}
	}
}
