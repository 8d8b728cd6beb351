package services

import (
	"context"
	"time"

	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

type CleanupConfig struct {
	Interval   time.Duration
	MaxTaskAge time.Duration
	OnlyIfSeen bool
}

// CleanupService periodically deletes completed tasks older than MaxTaskAge.
type CleanupService struct {
	repo   ports.TaskRepository
	cfg    CleanupConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewCleanupService(repo ports.TaskRepository, cfg CleanupConfig, log *logger.Logger) *CleanupService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CleanupService{repo: repo, cfg: cfg, logger: log, now: time.Now}
}

func (s *CleanupService) RunOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.cfg.MaxTaskAge)
	n, err := s.repo.DeleteCompleted(ctx, cutoff, s.cfg.OnlyIfSeen)
	if err != nil {
		s.logger.Errorw("cleanup_failed", "cutoff", cutoff, "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Infow("cleanup_success", "deleted", n, "cutoff", cutoff, "only_if_seen", s.cfg.OnlyIfSeen)
	}
	return n, nil
}

// Run calls RunOnce every Interval until ctx is cancelled. A non-positive
// interval disables the loop.
func (s *CleanupService) Run(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		s.logger.Infow("cleanup_disabled")
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
