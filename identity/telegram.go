package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	initdata "github.com/telegram-mini-apps/init-data-golang"
)

// TelegramAuthenticator validates Telegram Mini App init-data signed with the bot token.
type TelegramAuthenticator struct {
	token string
	expIn time.Duration
}

func NewTelegramAuthenticator(botToken string, expIn time.Duration) *TelegramAuthenticator {
	return &TelegramAuthenticator{token: botToken, expIn: expIn}
}

func (a *TelegramAuthenticator) Authenticate(_ context.Context, initData string) (*Identity, error) {
	if a.token == "" {
		return nil, fmt.Errorf("init-data validation is not configured")
	}
	if initData == "" {
		return nil, ErrInvalidCredential
	}

	// expIn==0 disables the TTL check.
	if err := initdata.Validate(initData, a.token, a.expIn); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	parsed, err := initdata.Parse(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if parsed.User.ID == 0 {
		return nil, fmt.Errorf("%w: init-data carries no user", ErrInvalidCredential)
	}

	name := strings.TrimSpace(parsed.User.FirstName + " " + parsed.User.LastName)
	return &Identity{
		UID:      strconv.FormatInt(parsed.User.ID, 10),
		Name:     name,
		Username: parsed.User.Username,
	}, nil
}
