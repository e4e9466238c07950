// Package notify delivers purchase and session alerts to the desktop and to Telegram.
package notify

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/j-veylop/quota-autopay/internal/logger"
)

// Notifier sends a short alert.
type Notifier interface {
	Notify(title, body string) error
}

// Desktop shows OS notifications.
type Desktop struct {
	send func(title, message string) error
}

// NewDesktop creates a desktop notifier.
func NewDesktop() *Desktop {
	return &Desktop{send: func(title, message string) error {
		return beeep.Notify(title, message, "")
	}}
}

// Notify implements Notifier.
func (d *Desktop) Notify(title, body string) error {
	return d.send(title, body)
}

// Telegram sends alerts to a single chat. The bot is created on first use so
// startup never waits on the Telegram API.
type Telegram struct {
	bot      *tgbotapi.BotAPI
	token    string
	endpoint string
	chatID   int64
	mu       sync.Mutex
}

// NewTelegram creates a Telegram notifier for chatID.
func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{token: token, chatID: chatID, endpoint: tgbotapi.APIEndpoint}
}

func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.token, t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false
	t.bot = bot
	return bot, nil
}

// Notify implements Notifier.
func (t *Telegram) Notify(title, body string) error {
	bot, err := t.client()
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s", title, body))
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// Multi fans an alert out to every notifier.
type Multi []Notifier

// Notify implements Notifier. Every notifier is tried; failures are joined.
func (m Multi) Notify(title, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Send delivers an alert and logs a failure instead of returning it.
// A nil notifier is a no-op.
func Send(n Notifier, title, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(title, body); err != nil {
		logger.Warn("notification failed", "title", title, "error", err)
	}
}
