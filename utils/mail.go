package utils

import (
	"fmt"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendMail sends a transactional email (currently only the password-reset
// link) through SendGrid.
func SendMail(to string, subject string, html string) (bool, error) {
	apiKey := os.Getenv("SENDGRID_API_KEY")
	if apiKey == "" {
		return false, fmt.Errorf("SENDGRID_API_KEY is not set")
	}

	fromAddress := os.Getenv("MAIL_FROM_ADDRESS")
	if fromAddress == "" {
		fromAddress = "noreply@pawmatching.app"
	}

	from := mail.NewEmail("PawMatching", fromAddress)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, "", html)

	client := sendgrid.NewSendClient(apiKey)
	res, err := client.Send(message)
	if err != nil {
		return false, err
	}

	if res.StatusCode >= 300 {
		return false, fmt.Errorf("sendgrid status %d: %s", res.StatusCode, res.Body)
	}

	return true, nil
}
