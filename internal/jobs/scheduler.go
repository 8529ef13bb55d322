package jobs

import (
	"fmt"
	"log"

	"unifinance/internal/logger"
	"unifinance/internal/serviceiface"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CronService struct {
	config map[string]interface{}
	pool   *pgxpool.Pool
}

func NewCronService(cfg map[string]interface{}, pool *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		pool:   pool,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	sweepConfig := NewDefaultSweepConfig()

	// Override sweep config from services.yaml if provided
	if s.config != nil {
		if schedule, ok := s.config["sweep_schedule"].(string); ok && schedule != "" {
			sweepConfig.Schedule = schedule
		}
		if batchSize, ok := s.config["sweep_batch_size"].(int); ok && batchSize > 0 {
			sweepConfig.BatchSize = batchSize
		}
	}

	if err := RunFallbackSweepScheduler(sweepConfig, s.pool); err != nil {
		return fmt.Errorf("failed to start fallback sweep scheduler: %v", err)
	}

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("Cron service started with fallback sweep")
	}
	log.Println("Cron service started — Fallback Sweep scheduled")

	return nil
}

func (s *CronService) Stop() error {
	log.Println("Cron service stopped.")
	return nil
}
