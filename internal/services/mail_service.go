package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"broadcast/internal/config"

	log "github.com/sirupsen/logrus"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Enabled  bool

	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailService(cfg *config.Config) *MailService {
	enabled := cfg.SMTPHost != "" && cfg.SMTPPort != "" && cfg.SMTPUser != "" && cfg.SMTPPass != "" && cfg.SMTPFrom != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	return &MailService{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.SMTPFrom,
		Enabled:  enabled,
		send:     smtp.SendMail,
	}
}

func (s *MailService) sendAsync(to []string, replyTo, subject, body string) {
	if !s.Enabled {
		log.WithField("to", to).Infof("mail disabled, not sending %q", subject)
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		headers := fmt.Sprintf("To: %s\r\nFrom: Broadcast <%s>\r\n", strings.Join(to, ","), s.From)
		if replyTo != "" {
			headers += fmt.Sprintf("Reply-To: %s\r\n", replyTo)
		}
		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(headers + fmt.Sprintf("Subject: %s\r\n%s\r\n%s", subject, mime, body))

		if err := s.send(addr, auth, s.From, to, msg); err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<p>A user has requested account verification.</p>
<p>Email: {{.Email}}</p>
<p><a href="{{.Link}}">Verify {{.Email}}</a></p>
<p>Reply to this message to contact the user.</p>`))

func renderTemplate(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// SendVerificationRequest asks the admin inbox to verify userEmail. Replies
// go to the user.
func (s *MailService) SendVerificationRequest(adminEmail, userEmail, link string) {
	if adminEmail == "" {
		log.Warn("VERIFY_ADMIN_EMAIL not set, verification request not mailed")
		return
	}
	body, err := renderTemplate(verificationTemplate, map[string]string{
		"Email": userEmail,
		"Link":  link,
	})
	if err != nil {
		log.Printf("Error rendering verification email: %v", err)
		return
	}
	s.sendAsync([]string{adminEmail}, userEmail, "Verification request from "+userEmail, body)
}
