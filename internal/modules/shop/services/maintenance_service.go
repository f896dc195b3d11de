package services

import (
	"context"
	"fmt"
	"time"

	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/conversation"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/core/scheduler"
	"github.com/MuhamadAgungGumelar/retail-chatbot-be/internal/modules/shop/repositories"
	"github.com/rs/zerolog/log"
)

// MaintenanceConfig holds the retention windows and their cron schedules.
type MaintenanceConfig struct {
	SessionTimeout    time.Duration
	SweepSchedule     string
	MessageRetention  time.Duration
	RetentionSchedule string
}

// MaintenanceService expires idle conversations and purges old messages.
type MaintenanceService struct {
	store  conversation.Store
	convos repositories.ConversationRepo
	cfg    MaintenanceConfig
}

func NewMaintenanceService(store conversation.Store, convos repositories.ConversationRepo, cfg MaintenanceConfig) *MaintenanceService {
	return &MaintenanceService{store: store, convos: convos, cfg: cfg}
}

// ExpireSessions resets every conversation idle for longer than the session timeout.
func (s *MaintenanceService) ExpireSessions(ctx context.Context) error {
	n, err := s.store.ExpireInactive(ctx, s.cfg.SessionTimeout)
	if err != nil {
		return fmt.Errorf("expire sessions: %w", err)
	}
	if n > 0 {
		log.Info().Int64("expired", n).Msg("🧹 Expired idle conversations")
	}
	return nil
}

// PurgeMessages deletes logged messages older than the retention window.
func (s *MaintenanceService) PurgeMessages(ctx context.Context) error {
	if s.cfg.MessageRetention <= 0 {
		return nil
	}
	n, err := s.convos.DeleteOlderThan(ctx, s.cfg.MessageRetention)
	if err != nil {
		return fmt.Errorf("purge messages: %w", err)
	}
	if n > 0 {
		log.Info().Int64("deleted", n).Msg("🧹 Purged old conversation messages")
	}
	return nil
}

// ReportIntents logs how inbound messages were classified over the last day.
func (s *MaintenanceService) ReportIntents(ctx context.Context) error {
	stats, err := s.convos.IntentStats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("intent stats: %w", err)
	}
	for _, st := range stats {
		log.Info().
			Str("intent", st.Intent).
			Int64("count", st.Count).
			Float64("avg_confidence", st.AvgConfidence).
			Msg("📊 Intent usage (24h)")
	}
	return nil
}

// Register schedules the maintenance jobs on sched. The intent report runs
// right before the retention purge.
func (s *MaintenanceService) Register(sched *scheduler.Scheduler) error {
	if err := sched.AddJob("expire_sessions", s.cfg.SweepSchedule, s.ExpireSessions); err != nil {
		return err
	}
	if err := sched.AddJob("report_intents", s.cfg.RetentionSchedule, s.ReportIntents); err != nil {
		return err
	}
	return sched.AddJob("purge_messages", s.cfg.RetentionSchedule, s.PurgeMessages)
}
