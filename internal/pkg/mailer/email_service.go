package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendLowBalanceAlert(toEmail, userId, balance string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

// SendLowBalanceAlert notifies the configured ops address that a user's
// credit balance dropped below the alert threshold.
func (s *emailService) SendLowBalanceAlert(toEmail, userId, balance string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Low credit balance alert")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Low credit balance</h2>
			<p>User <strong>%s</strong> has a remaining balance of <strong>%s</strong> credits.</p>
			<p>They will start seeing INSUFFICIENT_CREDITS failures once the balance can no longer cover a provider call.</p>
		</div>
	`, userId, balance)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send low balance alert for %s: %v\n", userId, err)
		return err
	}

	fmt.Printf("[MAILER] Low balance alert sent for user %s\n", userId)
	return nil
}
