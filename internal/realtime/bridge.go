package realtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-client/internal/clock"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/internal/events"
	"github.com/spec-kit/helpdesk-client/internal/tickets"
)

const (
	// DefaultDebounce coalesces bursts of push events into one reload.
	DefaultDebounce = 600 * time.Millisecond
	// DefaultReconnectDelay is the wait before resubscribing after a drop.
	DefaultReconnectDelay = 3000 * time.Millisecond
)

// Session is the slice of session state the bridge reads.
type Session interface {
	IsAuthenticated() bool
	CurrentMember() *domain.Member
	Generation() uint64
}

// Tickets reloads and highlights tickets.
type Tickets interface {
	LoadTickets(ctx context.Context) error
	HighlightTicket(id int64, kind tickets.HighlightKind, d time.Duration)
}

// Notifications reloads the notification list.
type Notifications interface {
	Load(ctx context.Context, silent bool) error
}

// Options configures a Bridge.
type Options struct {
	Subscriber     Subscriber
	Session        Session
	Tickets        Tickets
	Notifications  Notifications
	Clock          clock.Clock
	Logger         *zap.Logger
	Events         events.Dispatcher
	Debounce       time.Duration
	ReconnectDelay time.Duration
}

// Bridge keeps a realtime subscription alive and coalesces incoming events
// into reloads.
type Bridge struct {
	sub       Subscriber
	session   Session
	tickets   Tickets
	notifs    Notifications
	clock     clock.Clock
	logger    *zap.Logger
	events    events.Dispatcher
	debounce  time.Duration
	reconnect time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	timer   *clock.Timer
	seq     uint64
	pending int64
	signals int
}

// NewBridge constructs a disconnected Bridge.
func NewBridge(opts Options) *Bridge {
	b := &Bridge{
		sub:       opts.Subscriber,
		session:   opts.Session,
		tickets:   opts.Tickets,
		notifs:    opts.Notifications,
		clock:     opts.Clock,
		logger:    opts.Logger,
		events:    opts.Events,
		debounce:  opts.Debounce,
		reconnect: opts.ReconnectDelay,
	}
	if b.clock == nil {
		b.clock = clock.Real()
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.events == nil {
		b.events = events.Nop{}
	}
	if b.debounce <= 0 {
		b.debounce = DefaultDebounce
	}
	if b.reconnect <= 0 {
		b.reconnect = DefaultReconnectDelay
	}
	return b
}

// Connect starts the subscription loop. It does nothing when signed out,
// when no subscriber is configured or when already connected.
func (b *Bridge) Connect(ctx context.Context) {
	if b.sub == nil || !b.session.IsAuthenticated() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return
	}
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})
	go b.run(b.ctx, b.done)
}

// Disconnect cancels any pending reload and closes the subscription. It
// waits for the subscription loop to exit.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.seq++
	b.pending = 0
	b.signals = 0
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Active reports a running subscription loop.
func (b *Bridge) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

func (b *Bridge) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := b.sub.Run(ctx, b.Deliver)
		if ctx.Err() != nil {
			return
		}
		b.logger.Warn("realtime connection lost", zap.Error(err), zap.Duration("retry_in", b.reconnect))
		select {
		case <-ctx.Done():
			return
		case <-b.clock.After(b.reconnect):
		}
	}
}

// Deliver handles one raw push payload. Malformed payloads, events without
// a ticket id and events caused by the current member are dropped.
func (b *Bridge) Deliver(payload []byte) {
	evt, ok := ParseTicketEvent(payload)
	if !ok {
		return
	}
	if evt.ActorMemberID != nil {
		if member := b.session.CurrentMember(); member != nil && member.ID == *evt.ActorMemberID {
			return
		}
	}
	b.schedule(evt.TicketID)
}

func (b *Bridge) schedule(ticketID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = ticketID
	b.signals++
	if b.timer != nil {
		b.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.timer = b.clock.AfterFunc(b.debounce, func() { b.flush(seq) })
}

// PendingReload reports a scheduled reload that has not run yet.
func (b *Bridge) PendingReload() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timer != nil
}

func (b *Bridge) flush(seq uint64) {
	b.mu.Lock()
	if seq != b.seq {
		b.mu.Unlock()
		return
	}
	ticketID, signals := b.pending, b.signals
	b.pending, b.signals, b.timer = 0, 0, nil
	ctx := b.ctx
	b.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	gen := b.session.Generation()

	var wg sync.WaitGroup
	var ticketErr, notifErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		ticketErr = b.tickets.LoadTickets(ctx)
	}()
	go func() {
		defer wg.Done()
		notifErr = b.notifs.Load(ctx, false)
	}()
	wg.Wait()

	if ticketErr != nil || notifErr != nil {
		b.logger.Debug("realtime reload failed", zap.NamedError("tickets", ticketErr), zap.NamedError("notifications", notifErr))
		return
	}
	if gen != b.session.Generation() {
		return
	}
	if ticketID != 0 {
		b.tickets.HighlightTicket(ticketID, tickets.HighlightJump, tickets.RealtimeJumpHighlightDuration)
	}
	evt := events.New(events.EventRealtimeReload, ticketID, b.clock.Now(), events.RealtimeReloadPayload{Signals: signals})
	if err := b.events.Publish(ctx, evt); err != nil {
		b.logger.Warn("publish realtime reload", zap.Error(err))
	}
}
