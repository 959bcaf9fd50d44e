package sync

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"fitlog-sync-service/internal/config"
	"fitlog-sync-service/internal/logger"
)

// Scheduler is an optional trigger that drains the queue on a cron
// interval, for platforms without reliable foreground or connectivity
// hooks. The engine's own guard makes overlapping fires harmless.
type Scheduler struct {
	cfg     config.SchedulerConfig
	engine  *Engine
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewScheduler(cfg config.SchedulerConfig, engine *Engine) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		engine: engine,
		cron:   cron.New(),
	}
}

func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		logger.Log.Info("scheduler is disabled")
		return
	}

	logger.Log.Info("starting scheduler", zap.String("interval", s.cfg.Interval))

	id, err := s.cron.AddFunc(s.cfg.Interval, func() {
		s.triggerDrain()
	})

	if err != nil {
		logger.Log.Error("failed to schedule drain", zap.Error(err))
		return
	}

	s.entryID = id
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	logger.Log.Info("stopped scheduler")
}

func (s *Scheduler) triggerDrain() {
	res, err := s.engine.ProcessSyncQueue(context.Background())
	if err != nil {
		logger.Log.Error("scheduled drain failed", zap.Error(err))
		return
	}
	logger.Log.Debug("scheduled drain", zap.String("result", res.String()))
}
