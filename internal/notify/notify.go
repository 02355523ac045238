// Package notify sends guardian text messages through a shoutrrr
// service URL. Sends are best-effort: the tick loop logs failures and
// moves on.
package notify

import (
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const sendTimeout = 10 * time.Second

// Sender delivers messages to a phone number via a configured shoutrrr
// URL template containing a {phone} placeholder, e.g.
// "generic+https://sms-gateway.example/send?to={phone}".
type Sender struct {
	urlTemplate string
	phonePrefix string
}

// NewSender creates a sender. An empty template disables sending (Send
// becomes an error, which callers treat as best-effort).
func NewSender(urlTemplate, phonePrefix string) *Sender {
	return &Sender{
		urlTemplate: urlTemplate,
		phonePrefix: phonePrefix,
	}
}

// Send delivers message to the given phone number.
func (s *Sender) Send(phone, message string) error {
	if s.urlTemplate == "" {
		return fmt.Errorf("notification URL not configured")
	}

	serviceURL := s.buildURL(phone)
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return fmt.Errorf("create notification sender: %w", err)
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	for _, err := range sender.Send(message, &stypes.Params{}) {
		if err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
	}
	return nil
}

// buildURL substitutes the normalized phone number into the template.
func (s *Sender) buildURL(phone string) string {
	return strings.ReplaceAll(s.urlTemplate, "{phone}", url.QueryEscape(s.normalize(phone)))
}

// normalize prepends the default country prefix when the number has no
// explicit one.
func (s *Sender) normalize(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return s.phonePrefix + phone
}
