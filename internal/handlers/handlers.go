package handlers

import (
	"time"

	"clipfold/internal/audit"
	"clipfold/internal/database"
	"clipfold/internal/pipeline"
	"clipfold/internal/progress"
	"clipfold/internal/startup"
	"clipfold/internal/stats"
)

type Handlers struct {
	db      *database.Database
	config  *startup.Config
	tracker *progress.Tracker
	stats   *stats.Store
	audit   *audit.Logger
	orch    *pipeline.Orchestrator
	started time.Time
}

func New(db *database.Database, config *startup.Config, tracker *progress.Tracker, store *stats.Store, auditLog *audit.Logger, orch *pipeline.Orchestrator) *Handlers {
	return &Handlers{
		db:      db,
		config:  config,
		tracker: tracker,
		stats:   store,
		audit:   auditLog,
		orch:    orch,
		started: time.Now(),
	}
}
