package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "ctfcast/internal/errors"
	"ctfcast/internal/metrics"
	"ctfcast/internal/models"
	"ctfcast/internal/tracing"
	"ctfcast/pkg/gzctf"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Enqueuer is the queue surface the poller produces into.
type Enqueuer interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

// NoticePoller reads the notice feed of every configured game on a
// fixed interval and turns fresh notices into queued announcements.
// Dedup happens here, before the queue: the notification ID is derived
// from the game and notice IDs, and the tracker filters out anything
// already seen, so the queue never has to inspect content.
type NoticePoller struct {
	client    gzctf.Client
	queue     Enqueuer
	formatter *Formatter
	tracker   *NoticeTracker
	games     []models.GameConfig
	interval  time.Duration
	logger    *logrus.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.RWMutex
}

func NewNoticePoller(client gzctf.Client, queue Enqueuer, games []models.GameConfig, interval time.Duration, logger *logrus.Logger) *NoticePoller {
	return &NoticePoller{
		client:    client,
		queue:     queue,
		formatter: NewFormatter(),
		tracker:   NewNoticeTracker(),
		games:     games,
		interval:  interval,
		logger:    logger,
	}
}

// Start seeds the baseline for every game and begins polling. Notices
// that predate startup are recorded as seen, not announced.
func (p *NoticePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("notice poller is already running")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()

	p.logger.WithFields(logrus.Fields{
		"games":    len(p.games),
		"interval": p.interval.String(),
	}).Info("Notice poller started")
	return nil
}

func (p *NoticePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.logger.Info("Stopping notice poller...")
	p.cancel()
	p.wg.Wait()
	p.running = false
	p.logger.Info("Notice poller stopped")
}

// IsRunning returns whether the poller is currently active
func (p *NoticePoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

func (p *NoticePoller) pollLoop() {
	defer p.wg.Done()

	// Immediate first cycle so the baseline exists before the first
	// interval elapses.
	p.pollOnce()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *NoticePoller) pollOnce() {
	ctx, span := tracing.StartSpan(p.ctx, "poller.poll")
	defer span.End()

	for _, game := range p.games {
		if err := p.pollGame(ctx, game); err != nil {
			apperrors.LogError(p.logger, err, "Failed to poll game notices")
			metrics.IncrementCounter("poll_failures_total",
				map[string]string{"game": fmt.Sprintf("%d", game.ID)}, "Failed poll cycles")
		}
	}
}

func (p *NoticePoller) pollGame(ctx context.Context, game models.GameConfig) error {
	ctx, span := tracing.StartSpan(ctx, "poller.game",
		attribute.Int64("game.id", game.ID))
	defer span.End()

	notices, err := p.client.FetchNotices(ctx, game.ID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return err
	}

	if !p.tracker.Seeded(game.ID) {
		p.tracker.Seed(game.ID, notices)
		p.logger.WithFields(logrus.Fields{
			"game":    game.ID,
			"notices": len(notices),
		}).Info("Seeded notice baseline")
		return nil
	}

	for _, noticeType := range gzctf.AllNoticeTypes() {
		for _, notice := range p.tracker.NewNotices(game.ID, noticeType, notices) {
			if err := p.announce(ctx, game, notice); err != nil {
				p.logger.WithError(err).WithFields(logrus.Fields{
					"game":   game.ID,
					"notice": notice.ID,
				}).Error("Failed to enqueue announcement")
			}
		}
	}
	return nil
}

func (p *NoticePoller) announce(ctx context.Context, game models.GameConfig, notice gzctf.Notice) error {
	payload, err := p.formatter.Format(game.Name, notice)
	if err != nil {
		return err
	}

	id := fmt.Sprintf("game:%d:notice:%d", game.ID, notice.ID)
	n := models.NewNotification(id, payload)
	if err := p.queue.Enqueue(ctx, n); err != nil {
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"id":   id,
		"type": notice.Type,
	}).Info("Announcement queued")
	metrics.IncrementCounter("notices_queued_total",
		map[string]string{"type": notice.Type}, "Notices turned into announcements")
	return nil
}
