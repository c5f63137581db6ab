package mnotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/sms"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("sms.mnotify",
	fx.Provide(New),
)

// Sender delivers SMS through the mNotify quick-send GET API.
type Sender struct {
	baseURL  string
	key      string
	senderID string
	http     *http.Client
	log      *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) sms.Sender {
	return &Sender{
		baseURL:  cfg.SMSBaseURL,
		key:      cfg.SMSKey,
		senderID: cfg.SMSSenderID,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log.Named("sms.mnotify"),
	}
}

func (s *Sender) Send(ctx context.Context, to, message string) error {
	query := url.Values{}
	query.Set("key", s.key)
	query.Set("to", to)
	query.Set("msg", message)
	query.Set("sender_id", s.senderID)

	endpoint := s.baseURL + "/smsapi?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mnotify: status %d: %s", resp.StatusCode, string(body))
	}

	s.log.Debug("sms dispatched",
		zap.String("to", to),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}
