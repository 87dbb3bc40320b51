package app

import (
	"sync"

	"quiz-registration-service/internal/domain"
)

// SubmissionFeed fans newly recorded submissions out to subscribers (the admin
// websocket). Publishing never blocks: a slow subscriber loses its oldest
// buffered event instead of stalling the request path.
type SubmissionFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.SubmissionWithParticipant]struct{}
}

func NewSubmissionFeed() *SubmissionFeed {
	return &SubmissionFeed{
		subscribers: make(map[chan domain.SubmissionWithParticipant]struct{}),
	}
}

// Subscribe returns a channel of submission events. The caller must invoke the
// returned cancel function to avoid leaks.
func (f *SubmissionFeed) Subscribe() (<-chan domain.SubmissionWithParticipant, func()) {
	ch := make(chan domain.SubmissionWithParticipant, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber.
func (f *SubmissionFeed) Publish(entry domain.SubmissionWithParticipant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- entry:
		default:
			// Drop the oldest buffered event so the publisher never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- entry
		}
	}
}
