// Package notifier 通知通道实现（邮件、MQTT 推送）
// 各通道实现 dispatcher.Notifier；Multi 将多个通道合并为一个
package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"relief-coordinator/internal/config"
	"relief-coordinator/internal/models"
)

// EmailNotifier SMTP 邮件通道
type EmailNotifier struct {
	config *config.SMTPConfig
	// 可注入，测试时替换 smtp.SendMail
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier 创建邮件通道
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{
		config:   cfg,
		sendMail: smtp.SendMail,
	}
}

// Send 向用户邮箱发送告警邮件
// smtp.SendMail 本身不接受上下文，发送放到独立 goroutine 并对 ctx 超时
// 让出：SMTP 连接挂起时不能扣住扇出 worker
func (n *EmailNotifier) Send(ctx context.Context, recipient *models.User, subject, body string) error {
	if recipient.Email == "" {
		return fmt.Errorf("user %s has no email address", recipient.UserID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.config.Username != "" {
		auth = smtp.PlainAuth("", n.config.Username, n.config.Password, n.config.Host)
	}

	msg := buildMessage(n.config.From, recipient.Email, subject, body)
	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- n.sendMail(addr, auth, envelopeFrom(n.config.From), []string{recipient.Email}, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email to %s: %w", recipient.Email, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("email to %s abandoned: %w", recipient.Email, ctx.Err())
	}
}

// envelopeFrom 从 "Name <addr>" 形式的发件人中取信封地址
func envelopeFrom(from string) string {
	if i := strings.IndexByte(from, '<'); i >= 0 {
		if j := strings.IndexByte(from[i:], '>'); j > 0 {
			return from[i+1 : i+j]
		}
	}
	return from
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
