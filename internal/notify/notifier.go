package notify

import (
	"context"
	"fmt"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/config"
	"github.com/NanaWhan/RamadanApi/internal/events"
	"github.com/NanaWhan/RamadanApi/internal/sms"
	statsdomain "github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const consumerName = "notify"

const welcomeNewsletter = "Welcome to Ramadan Relief. We are glad to have you on board. " +
	"We will be sending you updates on our activities. Stay tuned."

type Params struct {
	fx.In

	Log    *zap.Logger
	Sender sms.Sender
	Stats  statsdomain.Service
	Cfg    config.Config
}

// Notifier sends best-effort SMS for campaign events. Send failures are
// logged and never propagate into the flows that triggered them.
type Notifier struct {
	log         *zap.Logger
	sender      sms.Sender
	stats       statsdomain.Service
	countryCode string
}

func NewNotifier(p Params) *Notifier {
	return &Notifier{
		log:         p.Log.Named("notify"),
		sender:      p.Sender,
		stats:       p.Stats,
		countryCode: p.Cfg.CountryCode,
	}
}

// Register subscribes the notifier to every topic it reacts to. It shares
// topics with other consumers but never a mailbox.
func (n *Notifier) Register(b *bus.Bus) error {
	subscriptions := map[string]bus.Handler{
		events.TopicDonationCompleted:     n.onDonationCompleted,
		events.TopicDonationFormSubmitted: n.onDonationFormSubmitted,
		events.TopicVolunteerRegistered:   n.onVolunteerRegistered,
		events.TopicPartnerRegistered:     n.onPartnerRegistered,
		events.TopicEventRegistered:       n.onEventRegistered,
		events.TopicNewsletterSubscribed:  n.onNewsletterSubscribed,
	}
	for topic, handler := range subscriptions {
		if err := b.Subscribe(topic, consumerName, handler); err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) onDonationCompleted(ctx context.Context, msg any) error {
	completed, ok := msg.(events.DonationCompleted)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}

	if completed.DonorPhone == "" {
		n.log.Info("no donor phone, skipping thank-you sms",
			zap.String("reference", completed.Reference),
		)
		return nil
	}

	meals := n.stats.MealsFor(completed.Amount)
	text := fmt.Sprintf(
		"Thank you for your donation of %s GHS to Ramadan Relief. "+
			"Your generosity will help provide %d meals for those in need during the holy month.",
		completed.Amount.StringFixed(2),
		meals,
	)
	n.send(ctx, completed.DonorPhone, text, "reference", completed.Reference)
	return nil
}

func (n *Notifier) onDonationFormSubmitted(ctx context.Context, msg any) error {
	form, ok := msg.(events.DonationFormSubmitted)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}

	donorText := fmt.Sprintf(
		"Thank you %s for your donation form submission of GHS %s to Ramadan Relief. We will contact you soon.",
		form.FullName,
		form.Amount.StringFixed(2),
	)
	n.send(ctx, form.Phone, donorText, "donor", form.FullName)

	if form.AdminPhone != "" {
		adminText := fmt.Sprintf(
			"New donation form submission! %s (%s, %s) has pledged GHS %s to the Ramadan Relief account. Kindly confirm receipt.",
			form.FullName,
			form.Phone,
			form.Email,
			form.Amount.StringFixed(2),
		)
		n.send(ctx, form.AdminPhone, adminText, "donor", form.FullName)
	}
	return nil
}

func (n *Notifier) onVolunteerRegistered(ctx context.Context, msg any) error {
	reg, ok := msg.(events.VolunteerRegistered)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}
	if reg.Phone == "" {
		n.log.Info("no volunteer phone, skipping welcome sms",
			zap.String("volunteer_id", reg.VolunteerID.String()),
		)
		return nil
	}
	text := fmt.Sprintf(
		"Thank you %s for volunteering with Ramadan Relief! We will reach out with opportunities to serve soon.",
		reg.Name,
	)
	n.send(ctx, reg.Phone, text, "volunteer_id", reg.VolunteerID.String())
	return nil
}

func (n *Notifier) onPartnerRegistered(ctx context.Context, msg any) error {
	reg, ok := msg.(events.PartnerRegistered)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}
	if reg.Phone == "" {
		n.log.Info("no partner phone, skipping welcome sms",
			zap.String("partner_id", reg.PartnerID.String()),
		)
		return nil
	}
	text := fmt.Sprintf(
		"Thank you for partnering with Ramadan Relief, %s! We value your support and will be in touch soon to discuss our collaboration further.",
		reg.Organization,
	)
	n.send(ctx, reg.Phone, text, "partner_id", reg.PartnerID.String())
	return nil
}

func (n *Notifier) onEventRegistered(ctx context.Context, msg any) error {
	reg, ok := msg.(events.EventRegistered)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}
	if reg.AttendeePhone == "" {
		n.log.Info("no attendee phone, skipping confirmation sms",
			zap.String("event_id", reg.EventID.String()),
		)
		return nil
	}
	text := fmt.Sprintf(
		"Thank you %s for registering for the %s in %s. We look forward to seeing you and your %d guests on %s. Contact us for any questions.",
		reg.AttendeeName,
		reg.EventTitle,
		reg.EventLocation,
		reg.NumberOfPeople,
		reg.EventDate,
	)
	n.send(ctx, reg.AttendeePhone, text, "event_id", reg.EventID.String())
	return nil
}

func (n *Notifier) onNewsletterSubscribed(ctx context.Context, msg any) error {
	sub, ok := msg.(events.NewsletterSubscribed)
	if !ok {
		return fmt.Errorf("notify: unexpected message type %T", msg)
	}
	n.send(ctx, sub.Phone, welcomeNewsletter, "topic", events.TopicNewsletterSubscribed)
	return nil
}

func (n *Notifier) send(ctx context.Context, rawPhone, text, refKey, refValue string) {
	to := NormalizePhone(rawPhone, n.countryCode)
	if to == "" {
		return
	}
	if err := n.sender.Send(ctx, to, text); err != nil {
		n.log.Warn("sms send failed",
			zap.String(refKey, refValue),
			zap.Error(err),
		)
		return
	}
	n.log.Info("sms sent", zap.String(refKey, refValue))
}
