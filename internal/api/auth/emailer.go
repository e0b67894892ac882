package auth

import (
	"fmt"
	"net/smtp"
)

// Without SMTP configured (local development) the links are only
// logged; the handlers treat delivery as best-effort either way.
func (h *Handler) sendVerificationEmail(to, token string) {
	link := fmt.Sprintf("%s/verify?token=%s", h.cfg.AppURL, token)
	h.sendMail(to, "Verify your account",
		fmt.Sprintf("Click the following link to verify your account:\n\n%s", link), link)
}

func (h *Handler) sendPasswordResetEmail(to, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", h.cfg.AppURL, token)
	h.sendMail(to, "Reset your password",
		fmt.Sprintf("Click the following link to reset your password:\n\n%s", link), link)
}

func (h *Handler) sendMail(to, subject, body, link string) {
	if h.cfg.SMTPHost == "" {
		h.log.Info().Str("to", to).Str("link", link).Msg("SMTP not configured, logging link instead")
		return
	}

	auth := smtp.PlainAuth("", h.cfg.SMTPFrom, h.cfg.SMTPPassword, h.cfg.SMTPHost)

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + h.cfg.SMTPFrom + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		body + "\r\n")

	addr := h.cfg.SMTPHost + ":" + h.cfg.SMTPPort
	if err := smtp.SendMail(addr, auth, h.cfg.SMTPFrom, []string{to}, message); err != nil {
		h.log.Error().Err(err).Str("to", to).Msg("failed to send email")
	}
}
