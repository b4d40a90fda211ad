package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/cookparty-backend/internal/room"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type Entity struct {
	ID uint `gorm:"primaryKey"`
}

// GameResult is one finished game.
type GameResult struct {
	Entity

	RoomCode   string `gorm:"size:16;index"`
	Players    string `gorm:"size:512"` // comma separated names
	Level      int
	TotalScore int `gorm:"index"`
	Won        bool
	FinishedAt time.Time `gorm:"index"`
}

func (GameResult) TableName() string { return "game_results" }

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects with driver "postgres" or "sqlite" and migrates the schema.
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&GameResult{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}, nil
}

// RecordGame implements room.Recorder.
func (s *Store) RecordGame(ctx context.Context, res room.Result) error {
	row := GameResult{
		RoomCode:   res.RoomCode,
		Players:    strings.Join(res.Players, ","),
		Level:      res.Level,
		TotalScore: res.TotalScore,
		Won:        res.Won,
		FinishedAt: res.FinishedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record game %s: %w", res.RoomCode, err)
	}
	s.log.Debug("game recorded", zap.String("room", res.RoomCode), zap.Uint("id", row.ID))
	return nil
}

type LeaderboardEntry struct {
	RoomCode   string    `json:"room_id"`
	Players    []string  `json:"players"`
	Level      int       `json:"level"`
	TotalScore int       `json:"total_score"`
	Won        bool      `json:"won"`
	FinishedAt time.Time `json:"finished_at"`
}

// Leaderboard returns the best limit games, highest score first, earlier
// finishes winning ties.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	var rows []GameResult
	err := s.db.WithContext(ctx).
		Order("total_score DESC").
		Order("finished_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		var players []string
		if r.Players != "" {
			players = strings.Split(r.Players, ",")
		}
		entries = append(entries, LeaderboardEntry{
			RoomCode:   r.RoomCode,
			Players:    players,
			Level:      r.Level,
			TotalScore: r.TotalScore,
			Won:        r.Won,
			FinishedAt: r.FinishedAt,
		})
	}
	return entries, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
