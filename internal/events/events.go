package events

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Topics carried by the in-process bus. Each topic has independent
// consumers with their own mailboxes.
const (
	TopicDonationCompleted     = "donation.completed"
	TopicDonationFormSubmitted = "donation.form_submitted"
	TopicVolunteerRegistered   = "volunteer.registered"
	TopicPartnerRegistered     = "partner.registered"
	TopicEventRegistered       = "event.registered"
	TopicNewsletterSubscribed  = "newsletter.subscribed"
)

// DonationCompleted is published exactly once per donation, on its
// transition into SUCCESS.
type DonationCompleted struct {
	Reference  string
	Amount     decimal.Decimal
	DonorPhone string
}

// DonationFormSubmitted is published when a donor pledges via the offline
// form; it triggers a confirmation SMS to the donor and a heads-up to the admin.
type DonationFormSubmitted struct {
	FullName   string
	Email      string
	Phone      string
	Amount     decimal.Decimal
	AdminPhone string
}

type VolunteerRegistered struct {
	VolunteerID snowflake.ID
	Name        string
	Phone       string
}

type PartnerRegistered struct {
	PartnerID    snowflake.ID
	Organization string
	Phone        string
}

type EventRegistered struct {
	EventID        snowflake.ID
	EventTitle     string
	EventLocation  string
	EventDate      string
	AttendeeName   string
	AttendeePhone  string
	NumberOfPeople int
}

type NewsletterSubscribed struct {
	Phone string
}
