package newsletter

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type subscribedCounter struct {
	mu    sync.Mutex
	count int
}

func (c *subscribedCounter) handle(context.Context, any) error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return nil
}

func setupNewsletter(t *testing.T, name string) (Service, *subscribedCounter) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(
		`CREATE TABLE IF NOT EXISTS newsletter_subscribers (
			id BIGINT PRIMARY KEY,
			phone TEXT NOT NULL UNIQUE,
			subscribed_at DATETIME NOT NULL
		)`,
	).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}

	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	b := bus.New(zap.NewNop(), bus.DefaultConfig())
	t.Cleanup(b.Stop)
	counter := &subscribedCounter{}
	if err := b.Subscribe(events.TopicNewsletterSubscribed, "counter", counter.handle); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	svc := NewService(ServiceParam{DB: db, Log: zap.NewNop(), GenID: node, Bus: b})
	return svc, counter
}

func TestSubscribeIsIdempotentPerPhone(t *testing.T) {
	svc, _ := setupNewsletter(t, "newsletter_idempotent")
	ctx := context.Background()

	first, err := svc.Subscribe(ctx, "0551234567")
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	second, err := svc.Subscribe(ctx, "0551234567")
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("re-subscription created a new row: %s vs %s", first.ID, second.ID)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("subscriber count = %d, want 1", len(list))
	}
}

func TestSubscribeStripsSpaces(t *testing.T) {
	svc, _ := setupNewsletter(t, "newsletter_spaces")

	sub, err := svc.Subscribe(context.Background(), " 055 123 4567 ")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.Phone != "0551234567" {
		t.Fatalf("stored phone %q", sub.Phone)
	}
}

func TestSubscribeRejectsEmptyPhone(t *testing.T) {
	svc, _ := setupNewsletter(t, "newsletter_empty")

	_, err := svc.Subscribe(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("err = %v, want ErrInvalidPhone", err)
	}
}
