package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
	"github.com/sayyara-app/sayyara-backend/pkg/metrics"
)

const (
	defaultSweepInterval = time.Minute
	lockKeyFormat        = "syr:expiry-worker:lock:%s"
	sweepJobName         = "bid_expiry_sweep"
)

type expirer interface {
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

// sweepLock keeps concurrent worker instances from racing the same sweep.
// The underlying bulk update is idempotent, so a lost lock only costs a
// redundant query.
type sweepLock interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Settlement expirer
	Lock       sweepLock
	Metrics    *metrics.JobMetrics
}

// Service flips overdue pending bids to expired on a fixed interval and
// releases their commitment fees.
type Service struct {
	logg       *logger.Logger
	settlement expirer
	lock       sweepLock
	metrics    *metrics.JobMetrics
	lockKey    string
	interval   time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.Settlement == nil {
		return nil, errors.New("settlement service is required")
	}
	if params.Lock == nil {
		return nil, errors.New("sweep lock is required")
	}

	interval := params.Config.Expiry.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	env := params.Config.App.Env
	if env == "" {
		env = "local"
	}

	return &Service{
		logg:       params.Logger,
		settlement: params.Settlement,
		lock:       params.Lock,
		metrics:    params.Metrics,
		lockKey:    fmt.Sprintf(lockKeyFormat, env),
		interval:   interval,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.sweep(ctx); err != nil {
		s.logg.Error(ctx, "expiry sweep failed", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "expiry worker context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				s.logg.Error(ctx, "expiry sweep failed", err)
			}
		}
	}
}

func (s *Service) sweep(ctx context.Context) error {
	acquired, err := s.lock.SetNX(ctx, s.lockKey, time.Now().Format(time.RFC3339Nano), s.interval)
	if err != nil {
		return fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !acquired {
		return nil
	}

	started := time.Now()
	expired, err := s.settlement.ExpirePending(ctx, started)
	s.metrics.ObserveDuration(sweepJobName, time.Since(started))
	if err != nil {
		s.metrics.IncFailure(sweepJobName)
		return err
	}
	s.metrics.IncSuccess(sweepJobName)
	if expired > 0 {
		s.logg.Info(s.logg.WithField(ctx, "expired_count", expired), "expired overdue bids")
	}
	return nil
}
