package volunteer

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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidName  = errors.New("volunteer_invalid_name")
	ErrInvalidPhone = errors.New("volunteer_invalid_phone")
)

type Volunteer struct {
	ID           snowflake.ID                `gorm:"column:id;primaryKey" json:"id"`
	Name         string                      `gorm:"column:name" json:"name"`
	Email        string                      `gorm:"column:email" json:"email"`
	Phone        string                      `gorm:"column:phone" json:"phone"`
	City         string                      `gorm:"column:city" json:"city"`
	Interests    datatypes.JSONSlice[string] `gorm:"column:interests" json:"interests"`
	Availability datatypes.JSONSlice[string] `gorm:"column:availability" json:"availability"`
	Message      string                      `gorm:"column:message" json:"message"`
	IsActive     bool                        `gorm:"column:is_active" json:"is_active"`
	RegisteredAt time.Time                   `gorm:"column:registered_at" json:"registered_at"`
}

func (Volunteer) TableName() string { return "volunteers" }

type RegisterRequest struct {
	Name         string   `json:"name" binding:"required"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone" binding:"required"`
	City         string   `json:"city"`
	Interests    []string `json:"interests"`
	Availability []string `json:"availability"`
	Message      string   `json:"message"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*Volunteer, error)
	List(ctx context.Context) ([]Volunteer, error)
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
		log:   p.Log.Named("volunteer.service"),
		genID: p.GenID,
		bus:   p.Bus,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*Volunteer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return nil, ErrInvalidPhone
	}

	v := &Volunteer{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        strings.TrimSpace(req.Email),
		Phone:        phone,
		City:         strings.TrimSpace(req.City),
		Interests:    datatypes.NewJSONSlice(req.Interests),
		Availability: datatypes.NewJSONSlice(req.Availability),
		Message:      strings.TrimSpace(req.Message),
		IsActive:     true,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}

	s.log.Info("volunteer registered",
		zap.String("volunteer_id", v.ID.String()),
		zap.String("name", v.Name),
	)
	s.bus.Publish(events.TopicVolunteerRegistered, events.VolunteerRegistered{
		VolunteerID: v.ID,
		Name:        v.Name,
		Phone:       v.Phone,
	})
	return v, nil
}

func (s *service) List(ctx context.Context) ([]Volunteer, error) {
	var out []Volunteer
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM volunteers WHERE is_active = ? ORDER BY registered_at DESC`, true).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

var Module = fx.Module("volunteer",
	fx.Provide(NewService),
)
