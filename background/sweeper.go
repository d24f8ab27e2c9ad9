// Package background contains services that run outside the request-response cycle.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/user/cropadvisor-go/logging"
)

// DefaultSweepInterval is how often expired sessions are swept.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper removes expired state and reports how much it removed.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionSweeper periodically sweeps a session store until stopped.
type SessionSweeper struct {
	store    Sweeper
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// StartSessionSweeper launches the sweep loop. A non-positive interval uses
// DefaultSweepInterval.
func StartSessionSweeper(store Sweeper, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &SessionSweeper{store: store, interval: interval, stop: make(chan struct{})}

	s.wg.Add(1)
	go s.run()
	return s
}

func (s *SessionSweeper) run() {
	defer s.wg.Done()
	log := logging.With("session-sweeper")
	log.Debug().Dur("interval", s.interval).Msg("started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			n, err := s.store.Sweep(ctx)
			cancel()
			if err != nil {
				log.Warn().Err(err).Msg("sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired sessions")
			}
		case <-s.stop:
			log.Debug().Msg("stopped")
			return
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish. It is safe to call
// more than once.
func (s *SessionSweeper) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}
