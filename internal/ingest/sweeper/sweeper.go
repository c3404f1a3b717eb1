// Package sweeper убирает брошенные загрузки: чанки, которые так и не
// склеили, и артефакты/временные файлы, оставшиеся после падения процесса.
package sweeper

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/EgorLis/my-assets/internal/metrics"
)

// Area: то, что умеет удалять файлы старше отсечки (chunkstore, merge).
type Area interface {
	SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

type Sweeper struct {
	areas    map[string]Area
	interval time.Duration
	maxAge   time.Duration
	log      *log.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(areas map[string]Area, interval, maxAge time.Duration, logger *log.Logger, m *metrics.Metrics) *Sweeper {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Sweeper{
		areas:    areas,
		interval: interval,
		maxAge:   maxAge,
		log:      logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Once проходит все области один раз. Ошибка одной области не мешает остальным.
func (s *Sweeper) Once(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.maxAge)
	total := 0
	var firstErr error
	for name, a := range s.areas {
		n, err := a.SweepOlderThan(ctx, cutoff)
		total += n
		s.metrics.Swept(name, n)
		if err != nil {
			s.log.Printf("sweep %s: %v (removed %d before failure)", name, err, n)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if n > 0 {
			s.log.Printf("sweep %s: removed %d files older than %s", name, n, s.maxAge)
		}
	}
	return total, firstErr
}

// Run крутит Once по тикеру до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Printf("sweeper disabled")
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	s.log.Printf("sweeper started: every %s, max age %s", s.interval, s.maxAge)
	for {
		select {
		case <-ctx.Done():
			s.log.Printf("sweeper stopped")
			return nil
		case <-t.C:
			_, _ = s.Once(ctx)
		}
	}
}
