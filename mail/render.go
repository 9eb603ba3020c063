package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
)

//go:embed templates/otp_email.html
var templateFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templateFS, "templates/otp_email.html"))

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
}

// Renderer builds OTP emails.
type Renderer struct {
	expire time.Duration
}

// NewRenderer returns a Renderer that advertises codes valid for expire.
func NewRenderer(expire time.Duration) *Renderer {
	if expire <= 0 {
		expire = 15 * time.Minute
	}
	return &Renderer{expire: expire}
}

// RenderOTP returns the subject and HTML body for code.
func (r *Renderer) RenderOTP(code string, purpose goIdentity.Purpose) (Message, error) {
	display := purpose.DisplayName()

	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Code          string
		Purpose       string
		ExpireMinutes int
	}{
		Code:          code,
		Purpose:       display,
		ExpireMinutes: int(r.expire / time.Minute),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	return Message{
		Subject: "Your verification code (" + display + ")",
		HTML:    buf.String(),
	}, nil
}
