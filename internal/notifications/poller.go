package notifications

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Poller is a running background refresh. It is owned by whoever started
// it and must be stopped before the session state is cleared.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartPolling refreshes notifications silently every poll interval until
// the returned Poller is stopped or ctx ends.
func (s *Service) StartPolling(ctx context.Context) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}
	ticker := s.clock.NewTicker(s.interval)

	go func() {
		defer close(p.done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				if err := s.Load(ctx, true); err != nil {
					s.logger.Debug("notification poll failed", zap.Error(err))
				}
			}
		}
	}()
	return p
}

// Stop ends polling and waits for an in-flight poll to return. Safe to
// call more than once and on a nil Poller.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	p.once.Do(p.cancel)
	<-p.done
}

// Done is closed once the polling goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}
