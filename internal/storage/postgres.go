package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"antcolony/internal/model"
)

type genomeRow struct {
	ID            string `gorm:"primaryKey"`
	SchemaVersion int    `gorm:"not null"`
	CodecVersion  int    `gorm:"not null"`
	Payload       []byte `gorm:"not null"`
}

func (genomeRow) TableName() string { return "colony_genomes" }

type runRow struct {
	ID            string    `gorm:"primaryKey"`
	CreatedAt     time.Time `gorm:"index;not null"`
	SchemaVersion int       `gorm:"not null"`
	CodecVersion  int       `gorm:"not null"`
	Payload       []byte    `gorm:"not null"`
}

func (runRow) TableName() string { return "colony_runs" }

type fitnessRow struct {
	RunID   string `gorm:"primaryKey"`
	Payload []byte `gorm:"not null"`
}

func (fitnessRow) TableName() string { return "colony_fitness_history" }

// PostgresStore keeps the same JSON payloads as the sqlite backend in
// postgres tables managed by gorm.
type PostgresStore struct {
	dsn string

	mu sync.RWMutex
	db *gorm.DB
}

func NewPostgresStore(dsn string) *PostgresStore {
	return &PostgresStore{dsn: dsn}
}

func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func (s *PostgresStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	db, err := OpenPostgres(s.dsn)
	if err != nil {
		return err
	}
	if err := db.WithContext(ctx).AutoMigrate(&genomeRow{}, &runRow{}, &fitnessRow{}); err != nil {
		closeGorm(db)
		return fmt.Errorf("migrate: %w", err)
	}
	s.db = db
	return nil
}

func (s *PostgresStore) SaveGenome(ctx context.Context, genome model.Genome) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}
	payload, err := EncodeGenome(genome)
	if err != nil {
		return err
	}
	row := genomeRow{
		ID:            genome.ID,
		SchemaVersion: genome.SchemaVersion,
		CodecVersion:  genome.CodecVersion,
		Payload:       payload,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *PostgresStore) GetGenome(ctx context.Context, id string) (model.Genome, bool, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return model.Genome{}, false, err
	}
	var row genomeRow
	if err := db.Where(&genomeRow{ID: id}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Genome{}, false, nil
		}
		return model.Genome{}, false, err
	}
	genome, err := DecodeGenome(row.Payload)
	if err != nil {
		return model.Genome{}, false, fmt.Errorf("decode genome %s: %w", id, err)
	}
	return genome, true, nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run model.RunSummary) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}
	payload, err := EncodeRunSummary(run)
	if err != nil {
		return err
	}
	row := runRow{
		ID:            run.ID,
		CreatedAt:     run.CreatedAt,
		SchemaVersion: run.SchemaVersion,
		CodecVersion:  run.CodecVersion,
		Payload:       payload,
	}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (model.RunSummary, bool, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return model.RunSummary{}, false, err
	}
	var row runRow
	if err := db.Where(&runRow{ID: id}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.RunSummary{}, false, nil
		}
		return model.RunSummary{}, false, err
	}
	run, err := DecodeRunSummary(row.Payload)
	if err != nil {
		return model.RunSummary{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return nil, err
	}
	query := db.Clauses(clause.OrderBy{
		Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}, Desc: true},
			{Column: clause.Column{Name: "id"}},
		},
	})
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []runRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]model.RunSummary, 0, len(rows))
	for _, row := range rows {
		run, err := DecodeRunSummary(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", row.ID, err)
		}
		out = append(out, run)
	}
	return out, nil
}

func (s *PostgresStore) SaveFitnessHistory(ctx context.Context, runID string, history []float64) error {
	db, err := s.getDB(ctx)
	if err != nil {
		return err
	}
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	row := fitnessRow{RunID: runID, Payload: payload}
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *PostgresStore) GetFitnessHistory(ctx context.Context, runID string) ([]float64, bool, error) {
	db, err := s.getDB(ctx)
	if err != nil {
		return nil, false, err
	}
	var row fitnessRow
	if err := db.Where(&fitnessRow{RunID: runID}).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	history, err := DecodeFitnessHistory(row.Payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) getDB(ctx context.Context) (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db.WithContext(ctx), nil
}

func closeGorm(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
