// Package store persists monitor settings and per-day detection counts
// in a SQLite database.
package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Settings is the single configuration row read by the tick loop.
type Settings struct {
	ID            int    `gorm:"primaryKey" json:"-"`
	StartTime     string `gorm:"column:start_time" json:"start_time"`
	EndTime       string `gorm:"column:end_time" json:"end_time"`
	ParentPhone   string `gorm:"column:parent_phone" json:"parent_phone"`
	NotifyEnabled bool   `gorm:"column:notify_enabled" json:"notify_enabled"`
}

func (Settings) TableName() string { return "settings" }

// DailyCount holds the number of distraction events logged on one day.
type DailyCount struct {
	Date       string `gorm:"primaryKey;column:date" json:"date"`
	Detections int    `gorm:"column:detections" json:"detections"`
}

func (DailyCount) TableName() string { return "history" }

// Store wraps the SQLite database behind the two records the monitor uses.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at path, migrates the
// schema and seeds the default settings row.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Settings{}, &DailyCount{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	seed := Settings{
		ID:        1,
		StartTime: "09:00",
		EndTime:   "17:00",
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}

	return &Store{db: db}, nil
}

// Settings returns the configuration row.
func (s *Store) Settings() (Settings, error) {
	var out Settings
	if err := s.db.First(&out, 1).Error; err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return out, nil
}

// UpdateSettings replaces the configuration row wholesale.
func (s *Store) UpdateSettings(in Settings) error {
	err := s.db.Model(&Settings{ID: 1}).Select("start_time", "end_time", "parent_phone", "notify_enabled").
		Updates(map[string]any{
			"start_time":     in.StartTime,
			"end_time":       in.EndTime,
			"parent_phone":   in.ParentPhone,
			"notify_enabled": in.NotifyEnabled,
		}).Error
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

// LogDetection increments the detection count for the given day,
// creating the row if it does not exist yet.
func (s *Store) LogDetection(day string) error {
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&DailyCount{Date: day}).Error; err != nil {
		return fmt.Errorf("ensure history row: %w", err)
	}
	err := s.db.Model(&DailyCount{}).Where("date = ?", day).
		UpdateColumn("detections", gorm.Expr("detections + 1")).Error
	if err != nil {
		return fmt.Errorf("increment history: %w", err)
	}
	return nil
}

// TodayCount returns the detection count for the given day, zero when no
// row exists.
func (s *Store) TodayCount(day string) (int, error) {
	var row DailyCount
	err := s.db.Where("date = ?", day).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load today count: %w", err)
	}
	return row.Detections, nil
}

// History returns up to limit daily rows, newest first.
func (s *Store) History(limit int) ([]DailyCount, error) {
	var rows []DailyCount
	err := s.db.Order("date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return rows, nil
}
