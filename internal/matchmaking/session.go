package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Amund211/haloclient/internal/apiclient"
	"github.com/Amund211/haloclient/internal/domain"
	"github.com/Amund211/haloclient/internal/events"
	"github.com/Amund211/haloclient/internal/logging"
	"github.com/Amund211/haloclient/internal/reporting"
)

type State string

const (
	StateIdle       State = "idle"
	StateSearching  State = "searching"
	StateMatchFound State = "match_found"
)

type Client interface {
	JoinMatchmaking(ctx context.Context, playlist string, playerIDs []int64) apiclient.Result[domain.MatchmakingTicket]
	GetMatchmakingStatus(ctx context.Context, ticketID string) apiclient.Result[domain.MatchmakingTicket]
}

// Connector joins the game server once a match is found
type Connector interface {
	Connect(ctx context.Context, ticket domain.MatchmakingTicket) error
}

type ProgressEvent struct {
	Ticket  domain.MatchmakingTicket
	Elapsed time.Duration
}

type MatchFoundEvent struct {
	Ticket  domain.MatchmakingTicket
	Elapsed time.Duration
}

type CancelledEvent struct {
	Ticket domain.MatchmakingTicket
}

type ErrorEvent struct {
	Ticket domain.MatchmakingTicket
	Err    error
}

// search is the state of one Start call
type search struct {
	cancelled atomic.Bool
	cancel    context.CancelFunc
	done      chan struct{}
}

type Session struct {
	client       Client
	connector    Connector
	pollInterval time.Duration
	maxWait      time.Duration
	nowFunc      func() time.Time
	afterFunc    func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	state   State
	ticket  domain.MatchmakingTicket
	current *search

	OnProgress   *events.Hub[ProgressEvent]
	OnMatchFound *events.Hub[MatchFoundEvent]
	OnCancelled  *events.Hub[CancelledEvent]
	OnError      *events.Hub[ErrorEvent]
}

type Option func(*Session)

func WithConnector(connector Connector) Option {
	return func(s *Session) {
		s.connector = connector
	}
}

func NewSession(
	client Client,
	pollInterval time.Duration,
	maxWait time.Duration,
	nowFunc func() time.Time,
	afterFunc func(time.Duration) <-chan time.Time,
	opts ...Option,
) *Session {
	session := &Session{
		client:       client,
		pollInterval: pollInterval,
		maxWait:      maxWait,
		nowFunc:      nowFunc,
		afterFunc:    afterFunc,

		state: StateIdle,

		OnProgress:   events.NewHub[ProgressEvent](),
		OnMatchFound: events.NewHub[MatchFoundEvent](),
		OnCancelled:  events.NewHub[CancelledEvent](),
		OnError:      events.NewHub[ErrorEvent](),
	}
	for _, opt := range opts {
		opt(session)
	}
	return session
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Ticket() domain.MatchmakingTicket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticket
}

// Start begins searching for a match in the background.
//
// Only one search runs at a time: calling Start while searching logs a warning and
// returns false without contacting the backend.
func (s *Session) Start(ctx context.Context, playlist string, playerIDs []int64) bool {
	ctx = logging.AddMetaToContext(ctx,
		slog.String("component", "matchmaking"),
		slog.String("playlist", playlist),
	)

	s.mu.Lock()
	if s.state == StateSearching {
		s.mu.Unlock()
		logging.FromContext(ctx).WarnContext(ctx, "Already searching for a match, ignoring start")
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	current := &search{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.current = current
	s.state = StateSearching
	s.ticket = domain.MatchmakingTicket{Playlist: playlist, PlayerIDs: playerIDs}
	s.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "Starting matchmaking", "playerIds", playerIDs)

	go s.run(ctx, current, playlist, playerIDs)
	return true
}

// Cancel stops the current search. No request is sent to the backend after Cancel returns.
// Returns false when there is no search to cancel.
func (s *Session) Cancel() bool {
	return s.cancelSearch(nil)
}

// cancelSearch cancels the active search, if it is expected or expected is nil
func (s *Session) cancelSearch(expected *search) bool {
	s.mu.Lock()
	current := s.current
	if s.state != StateSearching || current == nil || (expected != nil && current != expected) {
		s.mu.Unlock()
		return false
	}
	current.cancelled.Store(true)
	current.cancel()

	s.state = StateIdle
	s.ticket.Status = domain.TicketStatusCancelled
	ticket := s.ticket
	s.mu.Unlock()

	s.OnCancelled.Emit(context.Background(), CancelledEvent{Ticket: ticket})
	return true
}

// Wait blocks until the background goroutine of the latest search has exited
func (s *Session) Wait() {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current == nil {
		return
	}
	<-current.done
}

// transition moves to state if current is still the active search
func (s *Session) transition(current *search, state State, update func(ticket *domain.MatchmakingTicket)) (domain.MatchmakingTicket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != current || current.cancelled.Load() {
		return domain.MatchmakingTicket{}, false
	}

	s.state = state
	if update != nil {
		update(&s.ticket)
	}
	return s.ticket, true
}

// withNetwork runs request unless the search has been cancelled, and reports whether
// its result may still be used.
//
// The check is made under s.mu, which Cancel also holds while it cancels the search
// context. A request that slips past the check concurrently with Cancel therefore runs
// with a cancelled context and never reaches the backend. Nothing is held while the
// request runs, so listeners on the client may call Cancel.
func (s *Session) withNetwork(current *search, request func()) bool {
	s.mu.Lock()
	active := s.current == current && !current.cancelled.Load()
	s.mu.Unlock()
	if !active {
		return false
	}

	request()
	return !current.cancelled.Load()
}

func (s *Session) run(ctx context.Context, current *search, playlist string, playerIDs []int64) {
	defer close(current.done)
	defer current.cancel()

	logger := logging.FromContext(ctx)
	start := s.nowFunc()

	var joined apiclient.Result[domain.MatchmakingTicket]
	if !s.withNetwork(current, func() {
		joined = s.client.JoinMatchmaking(ctx, playlist, playerIDs)
	}) {
		return
	}

	if !joined.OK() && ctx.Err() != nil {
		// The caller's context ended while joining
		s.cancelSearch(current)
		return
	}

	if !joined.OK() {
		ticket, ok := s.transition(current, StateIdle, nil)
		if !ok {
			return
		}
		err := fmt.Errorf("%w: %w", domain.ErrJoinQueue, joined.Err)
		logger.WarnContext(ctx, "Failed to join matchmaking queue", "error", err.Error())
		s.OnError.Emit(ctx, ErrorEvent{Ticket: ticket, Err: err})
		return
	}

	ticket, ok := s.transition(current, StateSearching, func(ticket *domain.MatchmakingTicket) {
		*ticket = joined.Data
		if ticket.Playlist == "" {
			ticket.Playlist = playlist
		}
		if ticket.Status == "" {
			ticket.Status = domain.TicketStatusQueued
		}
	})
	if !ok {
		return
	}
	ctx = logging.AddMetaToContext(ctx, slog.String("ticketId", ticket.TicketID))
	ctx = reporting.AddTagsToContext(ctx, map[string]string{"ticketId": ticket.TicketID})
	logger = logging.FromContext(ctx)

	estimatedWait := time.Duration(ticket.EstimatedWaitSeconds) * time.Second

	for {
		if current.cancelled.Load() {
			return
		}
		if ctx.Err() != nil {
			// The caller's context ended without Cancel
			s.cancelSearch(current)
			return
		}

		elapsed := s.nowFunc().Sub(start)

		if elapsed >= s.maxWait {
			ticket, ok := s.transition(current, StateIdle, func(ticket *domain.MatchmakingTicket) {
				ticket.Status = domain.TicketStatusTimedOut
			})
			if !ok {
				return
			}
			err := fmt.Errorf("%w: no match found after %s", domain.ErrMatchmakingTimeout, elapsed)
			logger.WarnContext(ctx, "Matchmaking timed out", "elapsed", elapsed.String())
			s.OnError.Emit(ctx, ErrorEvent{Ticket: ticket, Err: err})
			return
		}

		var status apiclient.Result[domain.MatchmakingTicket]
		if !s.withNetwork(current, func() {
			status = s.client.GetMatchmakingStatus(ctx, ticket.TicketID)
		}) {
			return
		}

		if status.OK() {
			if status.Data.Status != "" {
				ticket.Status = status.Data.Status
			}
			if status.Data.EstimatedWaitSeconds > 0 {
				estimatedWait = time.Duration(status.Data.EstimatedWaitSeconds) * time.Second
			}
		} else {
			logger.WarnContext(ctx, "Failed to poll matchmaking status", "error", status.Err.Error())
		}

		if ticket.Status == domain.TicketStatusMatched || elapsed >= estimatedWait {
			s.matchFound(ctx, current, elapsed)
			return
		}

		ticket, ok = s.transition(current, StateSearching, func(t *domain.MatchmakingTicket) {
			t.Status = ticket.Status
			t.EstimatedWaitSeconds = int(estimatedWait / time.Second)
		})
		if !ok {
			return
		}
		s.OnProgress.Emit(ctx, ProgressEvent{Ticket: ticket, Elapsed: elapsed})

		select {
		case <-ctx.Done():
		case <-s.afterFunc(s.pollInterval):
		}
	}
}

func (s *Session) matchFound(ctx context.Context, current *search, elapsed time.Duration) {
	ticket, ok := s.transition(current, StateMatchFound, func(ticket *domain.MatchmakingTicket) {
		ticket.Status = domain.TicketStatusMatched
	})
	if !ok {
		return
	}

	logger := logging.FromContext(ctx)
	logger.InfoContext(ctx, "Match found", "elapsed", elapsed.String())
	s.OnMatchFound.Emit(ctx, MatchFoundEvent{Ticket: ticket, Elapsed: elapsed})

	if s.connector == nil {
		return
	}
	if err := s.connector.Connect(ctx, ticket); err != nil {
		err = fmt.Errorf("failed to connect to match: %w", err)
		logger.ErrorContext(ctx, "Failed to connect to match", "error", err.Error())
		s.OnError.Emit(ctx, ErrorEvent{Ticket: ticket, Err: err})
	}
}
