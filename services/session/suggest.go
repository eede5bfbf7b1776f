package session

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"cinescout/models"
)

const (
	// DefaultSuggestDelay is the debounce window between the last keystroke
	// and the autocomplete request.
	DefaultSuggestDelay = 500 * time.Millisecond

	// DefaultSuggestMinLength is the minimum input length that triggers a
	// suggestion fetch at all.
	DefaultSuggestMinLength = 3

	defaultSuggestSize    = 10
	defaultSuggestField   = "title"
	defaultSuggestTimeout = 10 * time.Second
)

// Autocompleter fetches suggestion candidates. Satisfied by *search.Client.
type Autocompleter interface {
	Autocomplete(ctx context.Context, field, value string, size int) ([]models.Suggestion, error)
}

// Suggester debounces a stream of text input into autocomplete fetches.
// Each input bumps a generation counter and re-arms the timer; when the timer
// fires, the fetch runs only if no newer input arrived, and its response is
// delivered only if the input is still current when it lands. Superseded
// responses are dropped, not cancelled.
type Suggester struct {
	client  Autocompleter
	deliver func(input string, suggestions []models.Suggestion)
	field   string
	size    int
	delay   time.Duration
	minLen  int
	timeout time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func NewSuggester(client Autocompleter, deliver func(string, []models.Suggestion)) *Suggester {
	return &Suggester{
		client:  client,
		deliver: deliver,
		field:   defaultSuggestField,
		size:    defaultSuggestSize,
		delay:   DefaultSuggestDelay,
		minLen:  DefaultSuggestMinLength,
		timeout: defaultSuggestTimeout,
	}
}

// Input feeds one text change into the debouncer.
func (s *Suggester) Input(text string) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len([]rune(text)) < s.minLen {
		return
	}
	gen := s.gen
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen, text) })
}

// Stop drops any pending fetch. Responses already in flight are discarded on
// arrival.
func (s *Suggester) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Suggester) fire(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	suggestions, err := s.client.Autocomplete(ctx, s.field, text, s.size)
	if err != nil {
		log.Printf("[suggest] autocomplete failed for %q: %v", text, err)
		return
	}

	s.mu.Lock()
	stale := gen != s.gen
	s.mu.Unlock()
	if stale {
		return
	}
	s.deliver(text, suggestions)
}
