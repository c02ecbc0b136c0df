package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/ignatzorin/jobmarket-backend/internal/logger"
)

// Mailer отправляет письма через SMTP. Пустой host отключает отправку,
// письма тогда только логируются.
type Mailer struct {
	host string
	port string
	from string
}

// New создаёт почтовый клиент.
func New(host, port, from string) *Mailer {
	return &Mailer{host: host, port: port, from: from}
}

// Send отправляет письмо. Сбой логируется и возвращается вызывающему,
// который сам решает, критичен ли он.
func (m *Mailer) Send(to, subject, body string) error {
	if m.host == "" {
		logger.WithComponent("mailer").
			WithField("to", to).WithField("subject", subject).
			Debug("SMTP не настроен, письмо пропущено")
		return nil
	}

	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{to}, []byte(msg)); err != nil {
		logger.WithComponent("mailer").WithError(err).WithField("to", to).
			Error("не удалось отправить письмо")
		return fmt.Errorf("mailer: отправка письма %w", err)
	}
	return nil
}
