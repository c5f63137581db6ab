package partner

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

var (
	ErrInvalidOrganization = errors.New("partner_invalid_organization")
	ErrInvalidPhone        = errors.New("partner_invalid_phone")
)

type Partner struct {
	ID               snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	OrganizationName string       `gorm:"column:organization_name" json:"organization_name"`
	ContactPerson    string       `gorm:"column:contact_person" json:"contact_person"`
	Phone            string       `gorm:"column:phone" json:"phone"`
	Email            string       `gorm:"column:email" json:"email"`
	City             string       `gorm:"column:city" json:"city"`
	Message          string       `gorm:"column:message" json:"message"`
	IsActive         bool         `gorm:"column:is_active" json:"is_active"`
	RegisteredAt     time.Time    `gorm:"column:registered_at" json:"registered_at"`
}

func (Partner) TableName() string { return "partners" }

type RegisterRequest struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	ContactPerson    string `json:"contact_person"`
	Phone            string `json:"phone" binding:"required"`
	Email            string `json:"email"`
	City             string `json:"city"`
	Message          string `json:"message"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Partner, error)
	List(ctx context.Context) ([]Partner, error)
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
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		bus:   p.Bus,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Partner, error) {
	org := strings.TrimSpace(req.OrganizationName)
	if org == "" {
		return nil, ErrInvalidOrganization
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	p := &Partner{
		ID:               s.genID.Generate(),
		OrganizationName: org,
		ContactPerson:    strings.TrimSpace(req.ContactPerson),
		Phone:            phone,
		Email:            strings.TrimSpace(req.Email),
		City:             strings.TrimSpace(req.City),
		Message:          strings.TrimSpace(req.Message),
		IsActive:         true,
		RegisteredAt:     time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}

	s.log.Info("partner registered",
		zap.String("partner_id", p.ID.String()),
		zap.String("organization", p.OrganizationName),
	)
	s.bus.Publish(events.TopicPartnerRegistered, events.PartnerRegistered{
		PartnerID:    p.ID,
		Organization: p.OrganizationName,
		Phone:        p.Phone,
	})
	return p, nil
}

func (s *service) List(ctx context.Context) ([]Partner, error) {
	var out []Partner
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM partners WHERE is_active = ? ORDER BY registered_at DESC`, true).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

var Module = fx.Module("partner",
	fx.Provide(NewService),
)
