// Package notify delivers customer text messages.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes outgoing messages to the log instead of an SMS gateway.
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender writing through logger.
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "notify").Logger()}
}

// Send logs the message. The phone number is masked to its last four digits.
func (s *LogSender) Send(ctx context.Context, phoneE164, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info().
		Str("channel", "sms").
		Str("to", mask(phoneE164)).
		Msg(message)
	return nil
}

func mask(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 && phone[i] != '+' {
			masked[i] = '*'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
