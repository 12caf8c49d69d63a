package studyservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/state"
	"github.com/starford/smartstudy/internal/transfer"
)

// PendingImport is a validated bundle waiting for the user to pick a
// strategy.
type PendingImport struct {
	Token     string           `json:"token"`
	Source    string           `json:"source"`
	Preview   transfer.Preview `json:"preview"`
	CreatedAt time.Time        `json:"createdAt"`

	bundle transfer.Bundle
}

// maxPendingImports bounds staged bundles; the oldest is evicted first.
const maxPendingImports = 32

// StageImport holds b for a later CommitImport. Nothing is applied.
func (s *Service) StageImport(b transfer.Bundle, source string) PendingImport {
	p := PendingImport{
		Token:     ids.New(),
		Source:    source,
		Preview:   b.Preview(),
		CreatedAt: s.now().UTC(),
		bundle:    b,
	}

	s.importsMu.Lock()
	if len(s.imports) >= maxPendingImports {
		oldest := ""
		for tok, pi := range s.imports {
			if oldest == "" || pi.CreatedAt.Before(s.imports[oldest].CreatedAt) {
				oldest = tok
			}
		}
		delete(s.imports, oldest)
	}
	s.imports[p.Token] = p
	s.importsMu.Unlock()

	s.logger.Info("import staged",
		slog.String("token", p.Token),
		slog.String("source", source),
		slog.Int("entities", p.Preview.Counts.Total()))
	s.notifier.PublishImportPending(p.Token, p.Preview)
	return p
}

// PendingImports lists staged bundles, oldest first.
func (s *Service) PendingImports() []PendingImport {
	s.importsMu.Lock()
	out := make([]PendingImport, 0, len(s.imports))
	for _, p := range s.imports {
		out = append(out, p)
	}
	s.importsMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// DiscardImport drops a staged bundle.
func (s *Service) DiscardImport(token string) bool {
	s.importsMu.Lock()
	defer s.importsMu.Unlock()
	if _, ok := s.imports[token]; !ok {
		return false
	}
	delete(s.imports, token)
	return true
}

// CommitImport applies a staged bundle with strategy. The bundle is
// consumed once the state has been updated, even if persisting failed.
func (s *Service) CommitImport(ctx context.Context, token string, strategy transfer.Strategy) (transfer.Report, error) {
	s.importsMu.Lock()
	p, ok := s.imports[token]
	s.importsMu.Unlock()
	if !ok {
		return transfer.Report{}, fmt.Errorf("import %s: %w", token, apperr.ErrNotFound)
	}

	res, err := s.Dispatch(ctx, state.Import{Data: p.bundle.Data, Strategy: strategy})
	if err != nil && !isStorage(err) {
		return transfer.Report{}, err
	}
	s.DiscardImport(token)

	var rep transfer.Report
	if res.Report != nil {
		rep = *res.Report
	}
	return rep, err
}
