package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pribylovaa/wedding-guestbook/pkg/log"
)

// Poller периодически вызывает fetch. Тик пропускается, пока предыдущий вызов
// ещё выполняется; Run возвращается после отмены контекста и завершения текущего вызова.
type Poller struct {
	interval time.Duration
	fetch    func(ctx context.Context) error

	inFlight atomic.Bool
	skipped  atomic.Int64
}

func NewPoller(interval time.Duration, fetch func(ctx context.Context) error) *Poller {
	return &Poller{interval: interval, fetch: fetch}
}

// Skipped — сколько тиков пропущено из-за незавершённого вызова.
func (p *Poller) Skipped() int64 { return p.skipped.Load() }

// Run делает первый вызов сразу, затем по тикеру.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx, &wg)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, &wg)
		}
	}
}

func (p *Poller) tick(ctx context.Context, wg *sync.WaitGroup) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		log.From(ctx).Debug("poll skipped: previous fetch in flight")
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer p.inFlight.Store(false)

		if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
			log.From(ctx).Warn("poll failed", "err", err)
		}
	}()
}
