package studyservice

import (
	"context"
	"time"

	"github.com/starford/smartstudy/internal/kvstore"
)

// RunEstimator refreshes the storage usage estimate every interval until ctx
// is done.
func (s *Service) RunEstimator(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.refreshUsage(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.refreshUsage(ctx)
		}
	}
}

func (s *Service) refreshUsage(ctx context.Context) kvstore.Usage {
	u := s.store.UsageEstimate(ctx)
	s.usageMu.Lock()
	changed := u != s.usage
	s.usage = u
	s.usageMu.Unlock()
	if changed {
		s.notifier.PublishStorageUpdated(u)
	}
	return u
}

// Usage returns the latest estimate, computing one if none was taken yet.
func (s *Service) Usage(ctx context.Context) kvstore.Usage {
	s.usageMu.RLock()
	u := s.usage
	s.usageMu.RUnlock()
	if u == (kvstore.Usage{}) {
		return s.refreshUsage(ctx)
	}
	return u
}
