package service

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/maronglamin/snap-admin-sub004/internal/config"
	"github.com/maronglamin/snap-admin-sub004/internal/constants"
	"github.com/maronglamin/snap-admin-sub004/internal/i18n"
)

var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// EmailService 邮件发送服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否已启用
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// SecurityNoticeInput 安全事件邮件输入
type SecurityNoticeInput struct {
	Username   string
	Event      string
	Remaining  int64
	OccurredAt time.Time
}

// SendSecurityNotice 发送账号安全事件通知，邮件中不包含任何密钥或验证码
func (s *EmailService) SendSecurityNotice(toEmail string, input SecurityNoticeInput, locale string) error {
	subject, body := buildSecurityNoticeContent(input, locale)
	return s.sendTextEmail(toEmail, subject, body)
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if s.cfg == nil || !s.cfg.Enabled {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	from := buildFromAddress(s.cfg.From, s.cfg.FromName)
	msg := buildEmailMessage(from, toEmail, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" || s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseSSL {
		return normalizeEmailSendError(sendMailWithSSL(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	if s.cfg.UseTLS {
		return normalizeEmailSendError(sendMailWithStartTLS(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
	}
	return normalizeEmailSendError(sendMailPlain(addr, auth, s.cfg.Host, s.cfg.From, []string{toEmail}, []byte(msg)))
}

type securityNoticeText struct {
	subject string
	action  string
}

var securityNoticeTexts = map[string]map[string]securityNoticeText{
	i18n.LocaleZH: {
		constants.SecurityEventMFAEnabled:             {"二次验证已开启", "您的后台账号已开启二次验证"},
		constants.SecurityEventMFADisabled:            {"二次验证已关闭", "您的后台账号已关闭二次验证，所有登录会话已失效"},
		constants.SecurityEventBackupCodeUsed:         {"备用码已被使用", "您的后台账号刚刚使用备用码完成登录"},
		constants.SecurityEventBackupCodesRegenerated: {"备用码已重新生成", "您的后台账号已重新生成备用码，旧备用码全部作废"},
		constants.SecurityEventPasswordChanged:        {"登录密码已修改", "您的后台账号密码已修改，所有登录会话已失效"},
	},
	i18n.LocaleTW: {
		constants.SecurityEventMFAEnabled:             {"二次驗證已開啟", "您的後台帳號已開啟二次驗證"},
		constants.SecurityEventMFADisabled:            {"二次驗證已關閉", "您的後台帳號已關閉二次驗證，所有登入會話已失效"},
		constants.SecurityEventBackupCodeUsed:         {"備用碼已被使用", "您的後台帳號剛剛使用備用碼完成登入"},
		constants.SecurityEventBackupCodesRegenerated: {"備用碼已重新產生", "您的後台帳號已重新產生備用碼，舊備用碼全部作廢"},
		constants.SecurityEventPasswordChanged:        {"登入密碼已修改", "您的後台帳號密碼已修改，所有登入會話已失效"},
	},
	i18n.LocaleEN: {
		constants.SecurityEventMFAEnabled:             {"Two-factor authentication enabled", "Two-factor authentication was enabled on your admin account"},
		constants.SecurityEventMFADisabled:            {"Two-factor authentication disabled", "Two-factor authentication was disabled on your admin account and all sessions were signed out"},
		constants.SecurityEventBackupCodeUsed:         {"Backup code used", "A backup code was just used to sign in to your admin account"},
		constants.SecurityEventBackupCodesRegenerated: {"Backup codes regenerated", "New backup codes were generated for your admin account; the previous codes no longer work"},
		constants.SecurityEventPasswordChanged:        {"Password changed", "The password of your admin account was changed and all sessions were signed out"},
	},
}

func buildSecurityNoticeContent(input SecurityNoticeInput, locale string) (string, string) {
	normalized := i18n.NormalizeLocale(locale)
	texts, ok := securityNoticeTexts[normalized]
	if !ok {
		texts = securityNoticeTexts[i18n.DefaultLocale]
	}
	text, ok := texts[input.Event]
	if !ok {
		text = securityNoticeText{subject: input.Event, action: input.Event}
	}
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	when := occurredAt.UTC().Format("2006-01-02 15:04:05 UTC")

	var b strings.Builder
	switch normalized {
	case i18n.LocaleEN:
		fmt.Fprintf(&b, "Hello %s,\n\n%s at %s.", input.Username, text.action, when)
		if input.Event == constants.SecurityEventBackupCodeUsed {
			fmt.Fprintf(&b, "\nRemaining backup codes: %d.", input.Remaining)
		}
		b.WriteString("\n\nIf this was not you, contact a super administrator immediately.")
	case i18n.LocaleTW:
		fmt.Fprintf(&b, "%s 您好：\n\n%s（時間：%s）。", input.Username, text.action, when)
		if input.Event == constants.SecurityEventBackupCodeUsed {
			fmt.Fprintf(&b, "\n剩餘備用碼：%d 個。", input.Remaining)
		}
		b.WriteString("\n\n如非本人操作，請立即聯繫超級管理員。")
	default:
		fmt.Fprintf(&b, "%s 您好：\n\n%s（时间：%s）。", input.Username, text.action, when)
		if input.Event == constants.SecurityEventBackupCodeUsed {
			fmt.Fprintf(&b, "\n剩余备用码：%d 个。", input.Remaining)
		}
		b.WriteString("\n\n如非本人操作，请立即联系超级管理员。")
	}
	return text.subject, b.String()
}

func buildFromAddress(from, name string) string {
	if strings.TrimSpace(name) == "" {
		return from
	}
	encoded := mime.QEncoding.Encode("UTF-8", name)
	return (&mail.Address{Name: encoded, Address: from}).String()
}

func buildEmailMessage(from, to, subject, body string) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", to))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.String()
}

func sendMailWithSSL(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	_, err = w.Write(msg)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func sendMailWithStartTLS(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return err
	}

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendMailPlain(addr string, auth smtp.Auth, host, from string, to []string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return err
			}
		}
	}

	return sendSMTPData(client, from, to, msg)
}

func sendSMTPData(client *smtp.Client, from string, to []string, msg []byte) error {
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func normalizeEmailSendError(err error) error {
	if err == nil {
		return nil
	}
	if isEmailRecipientRejected(err) {
		return ErrEmailRecipientRejected
	}
	return err
}

func isEmailRecipientRejected(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	if message == "" {
		return false
	}
	directKeywords := []string{
		"no such recipient",
		"no such user",
		"recipient not found",
		"recipient address rejected",
		"invalid recipient",
		"user unknown",
		"unknown user",
		"unknown mailbox",
		"mailbox unavailable",
	}
	for _, keyword := range directKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	if strings.Contains(message, "550") {
		hints := []string{"recipient", "user", "mailbox", "address", "rcpt"}
		for _, hint := range hints {
			if strings.Contains(message, hint) {
				return true
			}
		}
	}
	return false
}
