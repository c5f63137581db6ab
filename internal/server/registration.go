package server

import (
	"net/http"
	"strings"

	"github.com/NanaWhan/RamadanApi/internal/event"
	"github.com/NanaWhan/RamadanApi/internal/partner"
	"github.com/NanaWhan/RamadanApi/internal/volunteer"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

// @Summary      Register Volunteer
// @Tags         volunteers
// @Accept       json
// @Produce      json
// @Param        request body volunteer.RegisterRequest true "Volunteer Registration"
// @Router       /volunteers [post]
func (s *Server) RegisterVolunteer(c *gin.Context) {
	var req volunteer.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.volunteerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVolunteers(c *gin.Context) {
	list, err := s.volunteerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

// @Summary      Register Partner
// @Tags         partners
// @Accept       json
// @Produce      json
// @Param        request body partner.RegisterRequest true "Partner Registration"
// @Router       /partners [post]
func (s *Server) RegisterPartner(c *gin.Context) {
	var req partner.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.partnerSvc.Register(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPartners(c *gin.Context) {
	list, err := s.partnerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) CreateEvent(c *gin.Context) {
	var req event.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	var req event.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	resp, err := s.eventSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListEvents(c *gin.Context) {
	list, err := s.eventSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

// @Summary      Register for Event
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true  "Event ID"
// @Param        request  body  event.RegisterRequest  true  "Event Registration"
// @Router       /events/{id}/register [post]
func (s *Server) RegisterForEvent(c *gin.Context) {
	id, ok := parseEventID(c)
	if !ok {
		return
	}

	var req event.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.eventSvc.Register(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type subscribeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// @Summary      Subscribe to Newsletter
// @Tags         newsletter
// @Accept       json
// @Produce      json
// @Param        request body subscribeRequest true "Subscription"
// @Router       /newsletter/subscribe [post]
func (s *Server) SubscribeNewsletter(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.newsletterSvc.Subscribe(c.Request.Context(), req.Phone)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListSubscribers(c *gin.Context) {
	list, err := s.newsletterSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

func parseEventID(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	if raw == "" {
		AbortWithError(c, newValidationError("id", "missing_id", "event id is required"))
		return 0, false
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid event id"))
		return 0, false
	}
	return id, true
}
