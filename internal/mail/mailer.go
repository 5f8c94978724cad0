package mail

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/judithshaven/storefront/internal/config"
	"github.com/judithshaven/storefront/internal/models"
)

// Mailer sends transactional mail. A nil dialer disables sending, which keeps
// local dev and tests working without SMTP credentials.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	contact string
}

func New(cfg *config.Config) *Mailer {
	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		return &Mailer{contact: cfg.ContactEmail}
	}

	return &Mailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass),
		from:    cfg.SMTPUser,
		contact: cfg.ContactEmail,
	}
}

func (m *Mailer) send(to, subject, body string) error {
	if m == nil || m.dialer == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}

func (m *Mailer) SendOrderConfirmation(to string, order *models.Order) error {
	subject := fmt.Sprintf("Judith's Haven order #%d confirmed", order.ID)
	body := fmt.Sprintf(
		"Thank you for your order!\n\nOrder #%d\nItems: %.2f\nShipping: %.2f\nTax: %.2f\nDiscount: %.2f\nTotal: %.2f\n\nWe will let you know when it ships.",
		order.ID, order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.Discount, order.TotalPrice,
	)
	return m.send(to, subject, body)
}

func (m *Mailer) ForwardContactMessage(msg *models.ContactMessage) error {
	if m == nil || m.contact == "" {
		return nil
	}
	subject := fmt.Sprintf("Contact form: %s", msg.Subject)
	body := fmt.Sprintf("From: %s <%s>\n\n%s", msg.Name, msg.Email, msg.Body)
	return m.send(m.contact, subject, body)
}
