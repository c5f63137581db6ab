package event

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/clock"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("event_not_found")
	ErrInvalidTitle       = errors.New("event_invalid_title")
	ErrInvalidDates       = errors.New("event_invalid_dates")
	ErrInvalidAttendee    = errors.New("event_invalid_attendee")
	ErrRegistrationClosed = errors.New("event_registration_closed")
	ErrCapacityExceeded   = errors.New("event_capacity_exceeded")
)

type Event struct {
	ID                   snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Title                string       `gorm:"column:title" json:"title"`
	Description          string       `gorm:"column:description" json:"description"`
	Location             string       `gorm:"column:location" json:"location"`
	EventDate            time.Time    `gorm:"column:event_date" json:"event_date"`
	RegistrationDeadline time.Time    `gorm:"column:registration_deadline" json:"registration_deadline"`
	MaxAttendees         int64        `gorm:"column:max_attendees" json:"max_attendees"`
	CurrentAttendees     int64        `gorm:"column:current_attendees" json:"current_attendees"`
	IsActive             bool         `gorm:"column:is_active" json:"is_active"`
	CreatedAt            time.Time    `gorm:"column:created_at" json:"created_at"`
}

func (Event) TableName() string { return "events" }

type Registration struct {
	ID             snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	EventID        snowflake.ID `gorm:"column:event_id" json:"event_id"`
	AttendeeName   string       `gorm:"column:attendee_name" json:"attendee_name"`
	AttendeeEmail  string       `gorm:"column:attendee_email" json:"attendee_email"`
	AttendeePhone  string       `gorm:"column:attendee_phone" json:"attendee_phone"`
	NumberOfPeople int64        `gorm:"column:number_of_people" json:"number_of_people"`
	RegisteredAt   time.Time    `gorm:"column:registered_at" json:"registered_at"`
}

func (Registration) TableName() string { return "event_registrations" }

type CreateRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	Location             string    `json:"location"`
	EventDate            time.Time `json:"event_date" binding:"required"`
	RegistrationDeadline time.Time `json:"registration_deadline" binding:"required"`
	MaxAttendees         int64     `json:"max_attendees"`
}

type UpdateRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	Location             *string    `json:"location"`
	EventDate            *time.Time `json:"event_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxAttendees         *int64     `json:"max_attendees"`
	IsActive             *bool      `json:"is_active"`
}

type RegisterRequest struct {
	AttendeeName   string `json:"attendee_name" binding:"required"`
	AttendeeEmail  string `json:"attendee_email"`
	AttendeePhone  string `json:"attendee_phone"`
	NumberOfPeople int64  `json:"number_of_people"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Event, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Event, error)
	Get(ctx context.Context, id snowflake.ID) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	Register(ctx context.Context, id snowflake.ID, req RegisterRequest) (*Registration, error)
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Bus   *bus.Bus
	Clock clock.Clock
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	bus   *bus.Bus
	clock clock.Clock
}

func NewService(p ServiceParam) Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("event.service"),
		genID: p.GenID,
		bus:   p.Bus,
		clock: p.Clock,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Event, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}
	if req.EventDate.IsZero() || req.RegistrationDeadline.IsZero() {
		return nil, ErrInvalidDates
	}
	if req.RegistrationDeadline.After(req.EventDate) {
		return nil, ErrInvalidDates
	}

	e := &Event{
		ID:                   s.genID.Generate(),
		Title:                title,
		Description:          strings.TrimSpace(req.Description),
		Location:             strings.TrimSpace(req.Location),
		EventDate:            req.EventDate.UTC(),
		RegistrationDeadline: req.RegistrationDeadline.UTC(),
		MaxAttendees:         req.MaxAttendees,
		IsActive:             true,
		CreatedAt:            s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	s.log.Info("event created", zap.String("event_id", e.ID.String()), zap.String("title", e.Title))
	return e, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Event, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrInvalidTitle
		}
		e.Title = title
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.Location != nil {
		e.Location = strings.TrimSpace(*req.Location)
	}
	if req.EventDate != nil {
		e.EventDate = req.EventDate.UTC()
	}
	if req.RegistrationDeadline != nil {
		e.RegistrationDeadline = req.RegistrationDeadline.UTC()
	}
	if e.RegistrationDeadline.After(e.EventDate) {
		return nil, ErrInvalidDates
	}
	if req.MaxAttendees != nil {
		e.MaxAttendees = *req.MaxAttendees
	}
	if req.IsActive != nil {
		e.IsActive = *req.IsActive
	}

	err = s.db.WithContext(ctx).Exec(
		`UPDATE events
		 SET title = ?, description = ?, location = ?, event_date = ?,
		     registration_deadline = ?, max_attendees = ?, is_active = ?
		 WHERE id = ?`,
		e.Title, e.Description, e.Location, e.EventDate,
		e.RegistrationDeadline, e.MaxAttendees, e.IsActive, e.ID,
	).Error
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*Event, error) {
	var e Event
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM events WHERE id = ?`, id).
		Scan(&e).Error
	if err != nil {
		return nil, err
	}
	if e.ID == 0 {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *service) List(ctx context.Context) ([]Event, error) {
	var out []Event
	err := s.db.WithContext(ctx).
		Raw(`SELECT * FROM events WHERE is_active = ? ORDER BY event_date ASC`, true).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Register admits an attendee party. The seat reservation is a guarded
// UPDATE so concurrent registrations cannot oversell a capped event.
func (s *service) Register(ctx context.Context, id snowflake.ID, req RegisterRequest) (*Registration, error) {
	name := strings.TrimSpace(req.AttendeeName)
	if name == "" {
		return nil, ErrInvalidAttendee
	}
	people := req.NumberOfPeople
	if people <= 0 {
		people = 1
	}

	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !e.IsActive || now.After(e.RegistrationDeadline) {
		return nil, ErrRegistrationClosed
	}
	if e.MaxAttendees > 0 && e.CurrentAttendees+people > e.MaxAttendees {
		return nil, ErrCapacityExceeded
	}

	reg := &Registration{
		ID:             s.genID.Generate(),
		EventID:        e.ID,
		AttendeeName:   name,
		AttendeeEmail:  strings.TrimSpace(req.AttendeeEmail),
		AttendeePhone:  strings.TrimSpace(req.AttendeePhone),
		NumberOfPeople: people,
		RegisteredAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE events
			 SET current_attendees = current_attendees + ?
			 WHERE id = ?
			   AND is_active = ?
			   AND (max_attendees = 0 OR current_attendees + ? <= max_attendees)`,
			people, e.ID, true, people,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCapacityExceeded
		}
		return tx.Create(reg).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event registration",
		zap.String("event_id", e.ID.String()),
		zap.String("attendee", reg.AttendeeName),
		zap.Int64("people", reg.NumberOfPeople),
	)
	s.bus.Publish(events.TopicEventRegistered, events.EventRegistered{
		EventID:        e.ID,
		EventTitle:     e.Title,
		EventLocation:  e.Location,
		EventDate:      e.EventDate.Format("2 Jan 2006"),
		AttendeeName:   reg.AttendeeName,
		AttendeePhone:  reg.AttendeePhone,
		NumberOfPeople: int(reg.NumberOfPeople),
	})
	return reg, nil
}

var Module = fx.Module("event",
	fx.Provide(NewService),
)
