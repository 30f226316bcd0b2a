package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rflorenc/vm-migration-console/internal/kube"
	"github.com/rflorenc/vm-migration-console/internal/wizard"
)

// PlanLister lists plans and their migrations.
type PlanLister interface {
	ListPlans(ctx context.Context) ([]kube.Plan, error)
	ListMigrations(ctx context.Context) ([]kube.Migration, error)
}

// PollerConfig sets how often plan statuses are refreshed. For FastWindow
// after a mutation the poller uses FastInterval instead of Interval.
type PollerConfig struct {
	Interval     time.Duration
	FastInterval time.Duration
	FastWindow   time.Duration
}

// Poller periodically computes plan statuses and publishes them to
// subscribers. A nil *Poller is valid and does nothing.
type Poller struct {
	lister PlanLister
	cfg    PollerConfig
	log    logrus.FieldLogger
	now    func() time.Time

	mu        sync.Mutex
	subs      map[chan []wizard.PlanStatus]struct{}
	latest    []wizard.PlanStatus
	fastUntil time.Time
	kick      chan struct{}
}

func NewPoller(lister PlanLister, cfg PollerConfig, log logrus.FieldLogger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.FastInterval <= 0 || cfg.FastInterval > cfg.Interval {
		cfg.FastInterval = cfg.Interval
	}
	return &Poller{
		lister: lister,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		subs:   make(map[chan []wizard.PlanStatus]struct{}),
		kick:   make(chan struct{}, 1),
	}
}

// Mutated switches to the fast interval and triggers an immediate refresh.
func (p *Poller) Mutated() {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.fastUntil = p.now().Add(p.cfg.FastWindow)
	p.mu.Unlock()
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.now().Before(p.fastUntil) {
		return p.cfg.FastInterval
	}
	return p.cfg.Interval
}

// Subscribe returns a channel receiving every new snapshot and a function
// that ends the subscription. Slow subscribers miss snapshots.
func (p *Poller) Subscribe() (<-chan []wizard.PlanStatus, func()) {
	ch := make(chan []wizard.PlanStatus, 1)
	if p == nil {
		close(ch)
		return ch, func() {}
	}
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, ch)
			p.mu.Unlock()
			close(ch)
		})
	}
}

// Latest returns the last snapshot, or nil before the first poll.
func (p *Poller) Latest() []wizard.PlanStatus {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	for {
		p.poll(ctx)
		t := time.NewTimer(p.interval())
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-p.kick:
			t.Stop()
		case <-t.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	plans, err := p.lister.ListPlans(ctx)
	if err != nil {
		p.log.WithError(err).Warn("polling plans")
		return
	}
	migrations, err := p.lister.ListMigrations(ctx)
	if err != nil {
		p.log.WithError(err).Warn("polling migrations")
		return
	}
	statuses := wizard.ComputePlanStatuses(plans, migrations)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = statuses
	for ch := range p.subs {
		select {
		case ch <- statuses:
		default:
		}
	}
}
