package clinic

import (
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/clinic-queue/internal/config"
	redisclient "github.com/hackgods/clinic-queue/internal/redis"
)

// Service orchestrates check-in, consultation rooms and the downstream
// payment and pharmacy stages. Postgres is the source of truth; every state
// change is followed by a snapshot broadcast.
type Service struct {
	repo      Repository
	locker    redisclient.Locker
	publisher Publisher
	logger    *zap.Logger
	cfg       config.Config
	estimator Estimator
	now       func() time.Time

	Payment  *Stage
	Pharmacy *Stage
}

type Option func(*Service)

// WithClock overrides the wall clock used for "today" windows and no-show
// expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, locker redisclient.Locker, publisher Publisher, logger *zap.Logger, cfg config.Config, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:      repo,
		locker:    locker,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		estimator: Estimator{
			OverheadMinutes: cfg.EtaOverheadMinutes,
			ServiceMinutes:  cfg.EtaServiceMinutes,
			Providers:       cfg.EtaProviders,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Pharmacy = newStage(s, StagePharmacy, TopicPharmacyUpdate, nil)
	s.Payment = newStage(s, StagePayment, TopicPaymentUpdate, s.Pharmacy)

	return s
}

// Stage returns the pipeline for kind, or nil for an unknown kind.
func (s *Service) Stage(kind StageKind) *Stage {
	switch kind {
	case StagePayment:
		return s.Payment
	case StagePharmacy:
		return s.Pharmacy
	default:
		return nil
	}
}

func (s *Service) location() *time.Location {
	if s.cfg.Location != nil {
		return s.cfg.Location
	}
	return time.UTC
}
