package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/auth/password"
	"github.com/NanaWhan/RamadanApi/internal/config"
	statsdomain "github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EnsureStatistics guarantees the singleton aggregate row exists so reads
// never have to special-case an empty table.
func EnsureStatistics(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Exec(
		`INSERT INTO donation_statistics (id, total_donations, total_donors, meals_served, version, last_updated)
		 VALUES (?, 0, 0, 0, 0, ?)
		 ON CONFLICT (id) DO NOTHING`,
		statsdomain.StatisticsID, time.Now().UTC(),
	).Error
}

// EnsureAdmin bootstraps the admin account from the environment. Without
// credentials configured, no account is created and admin routes stay
// unreachable.
func EnsureAdmin(db *gorm.DB, node *snowflake.Node, cfg config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" || cfg.AdminPassword == "" {
		return nil
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing struct {
			ID int64 `gorm:"column:id"`
		}
		if err := tx.Raw(
			`SELECT id FROM admins WHERE username = ? LIMIT 1`, username,
		).Scan(&existing).Error; err != nil {
			return err
		}
		if existing.ID != 0 {
			return nil
		}

		hashed, err := password.Hash(cfg.AdminPassword)
		if err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO admins (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`,
			node.Generate(), username, hashed, time.Now().UTC(),
		).Error
	})
}
