package email

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/nvoronin/card-ledger/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendBlockDecisionNotice notifies a card owner that their block request has
// been approved or rejected.
func (s *Sender) SendBlockDecisionNotice(to, username string, cardID int64, approved bool, adminComment string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if approved {
		e.Subject = "Card Block Request Approved"
	} else {
		e.Subject = "Card Block Request Rejected"
	}

	// Format email body
	body := fmt.Sprintf("Dear %s,\n\n", username)
	if approved {
		body += fmt.Sprintf(
			"Your request to block card %d has been approved.\n"+
				"The card is now blocked and can no longer be used for transfers.\n",
			cardID,
		)
	} else {
		body += fmt.Sprintf(
			"Your request to block card %d has been rejected.\n"+
				"The card remains active.\n",
			cardID,
		)
	}
	if adminComment != "" {
		body += fmt.Sprintf("\nAdministrator comment: %s\n", adminComment)
	}
	body += "\nBest regards,\nCard Ledger"
	e.Text = []byte(body)

	// Send email
	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
