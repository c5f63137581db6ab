package newsletter

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidPhone = errors.New("newsletter_invalid_phone")

type Subscriber struct {
	ID           snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Phone        string       `gorm:"column:phone" json:"phone"`
	SubscribedAt time.Time    `gorm:"column:subscribed_at" json:"subscribed_at"`
}

func (Subscriber) TableName() string { return "newsletter_subscribers" }

type Service interface {
	// Subscribe is idempotent per phone. Re-subscribing an existing number
	// succeeds without a second welcome message.
	Subscribe(ctx context.Context, phone string) (*Subscriber, error)
	List(ctx context.Context) ([]Subscriber, error)
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Bus   *bus.Bus
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	bus   *bus.Bus
}

func NewService(p ServiceParam) Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("newsletter.service"),
		genID: p.GenID,
		bus:   p.Bus,
	}
}

func (s *service) Subscribe(ctx context.Context, phone string) (*Subscriber, error) {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	sub := &Subscriber{
		ID:           s.genID.Generate(),
		Phone:        phone,
		SubscribedAt: time.Now().UTC(),
	}
	res := s.db.WithContext(ctx).Exec(
		`INSERT INTO newsletter_subscribers (id, phone, subscribed_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (phone) DO NOTHING`,
		sub.ID, sub.Phone, sub.SubscribedAt,
	)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		var existing Subscriber
		err := s.db.WithContext(ctx).
			Raw(`SELECT * FROM newsletter_subscribers WHERE phone = ?`, sub.Phone).
			Scan(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}

	s.log.Info("newsletter subscription", zap.String("subscriber_id", sub.ID.String()))
	s.bus.Publish(events.TopicNewsletterSubscribed, events.NewsletterSubscribed{
		Phone: sub.Phone,
	})
	return sub, nil
}

func (s *service) List(ctx context.Context) ([]Subscriber, error) {
	var out []Subscriber
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM newsletter_subscribers ORDER BY subscribed_at DESC`).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

var Module = fx.Module("newsletter",
	fx.Provide(NewService),
)
