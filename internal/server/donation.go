package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	donationdomain "github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type createDonationRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod  string          `json:"payment_method"`
	DonorName      string          `json:"donor_name"`
	DonorEmail     string          `json:"donor_email"`
	DonorPhone     string          `json:"donor_phone"`
	CampaignSource string          `json:"campaign_source"`
}

// @Summary      Create Donation
// @Description  Persist a pending donation and return a hosted payment link
// @Tags         donations
// @Accept       json
// @Produce      json
// @Param        request body createDonationRequest true "Create Donation Request"
// @Router       /donations [post]
func (s *Server) CreateDonation(c *gin.Context) {
	var req createDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.donationSvc.Create(c.Request.Context(), donationdomain.CreateDonationRequest{
		Amount:         req.Amount,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		DonorName:      strings.TrimSpace(req.DonorName),
		DonorEmail:     strings.TrimSpace(req.DonorEmail),
		DonorPhone:     strings.TrimSpace(req.DonorPhone),
		CampaignSource: strings.TrimSpace(req.CampaignSource),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"reference":    resp.Reference,
		"payment_link": resp.PaymentLink,
	}})
}

type donationFormRequest struct {
	FullName string          `json:"full_name" binding:"required"`
	Email    string          `json:"email"`
	Phone    string          `json:"phone" binding:"required"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// SubmitDonationForm takes an offline pledge. Nothing is charged here; the
// pledge just fans out as notifications to the donor and the admin line.
func (s *Server) SubmitDonationForm(c *gin.Context) {
	var req donationFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Amount.Sign() <= 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be positive"))
		return
	}

	s.bus.Publish(events.TopicDonationFormSubmitted, events.DonationFormSubmitted{
		FullName:   strings.TrimSpace(req.FullName),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Amount:     req.Amount,
		AdminPhone: s.cfg.AdminPhone,
	})

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"received": true}})
}

// @Summary      Check Donation Status
// @Description  Return the stored payment status, consulting the gateway for pending donations
// @Tags         donations
// @Produce      json
// @Param        reference  path  string  true  "Transaction Reference"
// @Router       /donations/status/{reference} [get]
func (s *Server) CheckDonationStatus(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		AbortWithError(c, newValidationError("reference", "missing_reference", "reference is required"))
		return
	}

	resp, err := s.donationSvc.CheckStatus(c.Request.Context(), reference)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type gatewayWebhookBody struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// GatewayWebhook ingests PayStack notifications. The gateway retries on
// non-2xx, so every outcome acknowledges with 200; processing failures are
// our problem, not the gateway's.
func (s *Server) GatewayWebhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	var body gatewayWebhookBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Data.Reference == "" {
		s.log.Warn("unparseable gateway webhook", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}

	if err := s.donationSvc.HandleGatewayEvent(c.Request.Context(), body.Event, body.Data.Reference, raw); err != nil {
		s.log.Error("gateway webhook processing failed",
			zap.String("event", body.Event),
			zap.String("reference", body.Data.Reference),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

// @Summary      Campaign Statistics
// @Tags         statistics
// @Produce      json
// @Router       /statistics [get]
func (s *Server) GetStatistics(c *gin.Context) {
	stats, err := s.statsSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (s *Server) ListDonations(c *gin.Context) {
	list, err := s.donationSvc.ListRecent(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (s *Server) VerifyDonation(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		AbortWithError(c, newValidationError("reference", "missing_reference", "reference is required"))
		return
	}

	if err := s.donationSvc.VerifyPayment(c.Request.Context(), reference); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reference": reference, "status": donationdomain.StatusSuccess}})
}

type forceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) ForceDonationStatus(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		AbortWithError(c, newValidationError("reference", "missing_reference", "reference is required"))
		return
	}

	var req forceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status, ok := donationdomain.ParseStatus(req.Status)
	if !ok {
		AbortWithError(c, donationdomain.ErrInvalidStatus)
		return
	}

	if err := s.donationSvc.ForceStatus(c.Request.Context(), reference, status); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"reference": reference, "status": status}})
}
