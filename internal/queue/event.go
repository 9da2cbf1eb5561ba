// Package queue carries out-of-band work over RabbitMQ.  The API publishes a
// PasswordResetRequested event when a reset token is issued and a consumer
// turns it into an email, so request latency never depends on SMTP.
package queue

import "time"

// PasswordResetQueue is the default durable queue for reset mail.
const PasswordResetQueue = "password.reset.requested"

// PasswordResetRequested is published after a reset token has been stored.
// ResetURL embeds the plaintext token; the event is the only place it
// travels besides the email itself.
type PasswordResetRequested struct {
	UserID      uint64    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	ResetURL    string    `json:"reset_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	RequestedAt time.Time `json:"requested_at"`
}
