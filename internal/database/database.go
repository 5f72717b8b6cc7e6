package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lessonloop/api/internal/config"
	"github.com/lessonloop/api/internal/model"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surface unique-index violations as gorm.ErrDuplicatedKey; the
		// generator relies on this to tell "already generated" apart from
		// real failures.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.SessionTemplate{},
		&model.StudentGroup{},
		&model.GroupMember{},
		&model.GroupAssignment{},
		&model.ClassSession{},
		&model.SessionStudent{},
		&model.GeneratedSession{},
		&model.GenerationLog{},
		&model.SchedulerJob{},
		&model.SchedulerJobRun{},
	)
	if err != nil {
		return err
	}

	// The idempotency constraint: at most one generated_sessions row per
	// (template, session_date). AutoMigrate declares it too, but older
	// deployments predate the tag so the raw statement stays.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_generated_sessions_template_date ON generated_sessions(template_id, session_date)")

	return nil
}
