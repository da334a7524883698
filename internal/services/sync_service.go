package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/TridentTech8969/ASA/internal/imap"
	"github.com/TridentTech8969/ASA/internal/metrics"
	"github.com/TridentTech8969/ASA/internal/models"
	"github.com/TridentTech8969/ASA/internal/repository"
)

// MailboxReader is the remote mailbox as seen by the services.
type MailboxReader interface {
	FetchRecent(ctx context.Context, limit int, label string) ([]models.Message, error)
	FetchDetail(ctx context.Context, id string) (*models.Message, error)
	FetchAttachment(ctx context.Context, id, fileName string) (*imap.AttachmentContent, error)
}

// Notifier pushes newly observed messages to connected clients.
type Notifier interface {
	BroadcastNew(items []models.EmailSummary)
}

// SyncConfig holds configuration for the mailbox synchronizer
type SyncConfig struct {
	// Interval is the pause between the end of one cycle and the start of the next
	Interval time.Duration
	// MaxMessages caps how many of the most recent messages each cycle fetches
	MaxMessages int
	// FilterLabel keeps only messages carrying this label when set
	FilterLabel string
	// DetailedLogging logs every stored message at info level
	DetailedLogging bool
}

// SyncResult describes one finished sync cycle.
type SyncResult struct {
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
	Fetched   int           `json:"fetched"`
	New       int           `json:"new"`
	Failed    int           `json:"failed"`
	Error     string        `json:"error,omitempty"`
}

// SyncService polls the mailbox, stores what it finds and broadcasts the
// messages it has not seen before.
type SyncService struct {
	mailbox  MailboxReader
	repo     repository.MessageRepository
	notifier Notifier
	metrics  *metrics.Metrics
	config   SyncConfig
	logger   *slog.Logger

	// cycleMu keeps RunOnce calls from overlapping with the loop.
	cycleMu sync.Mutex

	stopCh  chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	last    *SyncResult
	mu      sync.Mutex
}

// NewSyncService creates a new mailbox synchronizer
func NewSyncService(
	mailbox MailboxReader,
	repo repository.MessageRepository,
	notifier Notifier,
	m *metrics.Metrics,
	config SyncConfig,
	logger *slog.Logger,
) *SyncService {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 200
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncService{
		mailbox:  mailbox,
		repo:     repo,
		notifier: notifier,
		metrics:  m,
		config:   config,
		logger:   logger.With(slog.String("component", "sync")),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sync loop. The first cycle runs immediately.
// Cancelling ctx has the same effect as Stop without waiting.
func (s *SyncService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.stopCh = make(chan struct{})
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.syncLoop(loopCtx)

	s.logger.Info("mailbox sync started",
		slog.Duration("interval", s.config.Interval),
		slog.Int("max_messages", s.config.MaxMessages),
		slog.String("filter_label", s.config.FilterLabel))
}

// Stop ends the loop, cancelling an in-flight cycle, and waits for it to exit.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("mailbox sync stopped")
}

// IsRunning returns whether the sync loop is active
func (s *SyncService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the most recent finished cycle, if any.
func (s *SyncService) LastResult() (SyncResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return SyncResult{}, false
	}
	return *s.last, true
}

func (s *SyncService) syncLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("sync cycle failed, retrying after interval",
				slog.Duration("interval", s.config.Interval),
				slog.Any("error", err))
		}

		// The sleep starts after the cycle, so cycles never overlap.
		timer.Reset(s.config.Interval)
	}
}

// RunOnce performs a single fetch, diff, upsert and notify pass.
func (s *SyncService) RunOnce(ctx context.Context) (result SyncResult, err error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	result.StartedAt = time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sync cycle panicked", slog.Any("panic", r))
			err = fmt.Errorf("sync cycle panicked: %v", r)
		}
		result.Duration = time.Since(result.StartedAt)
		if err != nil {
			result.Error = err.Error()
		}
		s.record(result, err)
	}()

	messages, err := s.mailbox.FetchRecent(ctx, s.config.MaxMessages, s.config.FilterLabel)
	if err != nil {
		return result, fmt.Errorf("failed to fetch recent messages: %w", err)
	}
	result.Fetched = len(messages)

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedUTC.After(messages[j].ReceivedUTC)
	})

	var newlyAdded []models.EmailSummary
	for i := range messages {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		msg := &messages[i]
		isNew, err := s.storeItem(ctx, msg)
		if err != nil {
			result.Failed++
			s.countItemError()
			s.logger.Error("failed to store message",
				slog.String("id", msg.ID),
				slog.Any("error", err))
			continue
		}
		if isNew {
			newlyAdded = append(newlyAdded, msg.Summary())
		}
	}
	result.New = len(newlyAdded)

	// Notify only once the whole batch is stored.
	if len(newlyAdded) > 0 && s.notifier != nil {
		s.notifier.BroadcastNew(newlyAdded)
	}

	s.logger.Debug("sync cycle finished",
		slog.Int("fetched", result.Fetched),
		slog.Int("new", result.New),
		slog.Int("failed", result.Failed))
	return result, nil
}

// storeItem checks whether the message was known, then upserts it.
func (s *SyncService) storeItem(ctx context.Context, msg *models.Message) (isNew bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while storing message: %v", r)
		}
	}()

	if msg.ID == "" {
		return false, errors.New("message has no id")
	}

	existed, err := s.repo.Exists(ctx, msg.ID)
	if err != nil {
		return false, err
	}
	if err := s.repo.Upsert(ctx, msg); err != nil {
		return false, err
	}

	if s.config.DetailedLogging {
		s.logger.Info("stored message",
			slog.String("id", msg.ID),
			slog.Bool("new", !existed),
			slog.String("subject", msg.Subject))
	}
	return !existed, nil
}

func (s *SyncService) record(result SyncResult, err error) {
	s.mu.Lock()
	s.last = &result
	s.mu.Unlock()

	if s.metrics == nil {
		return
	}
	s.metrics.SyncCycleDuration.Observe(result.Duration.Seconds())
	if err != nil {
		s.metrics.SyncCycles.WithLabelValues(metrics.ResultFailure).Inc()
		return
	}
	s.metrics.SyncCycles.WithLabelValues(metrics.ResultSuccess).Inc()
	s.metrics.SyncNewMessages.Add(float64(result.New))
	s.metrics.SyncLastSuccess.SetToCurrentTime()
}

func (s *SyncService) countItemError() {
	if s.metrics != nil {
		s.metrics.SyncItemErrors.Inc()
	}
}
