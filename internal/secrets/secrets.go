// Package secrets resolves API credentials from the environment and Google
// Cloud Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"humpday-trader/internal/interfaces"
	"humpday-trader/internal/logger"
	"humpday-trader/internal/store"
	"humpday-trader/internal/types"
)

var ErrNotFound = errors.New("secret not found")

// Secret names.
const (
	FinnhubAPIKey        = "finnhub_api_key"
	AlpacaPaperAPIKey    = "alpaca_paper_api_key"
	AlpacaPaperAPISecret = "alpaca_paper_api_secret"
	AlpacaLiveAPIKey     = "alpaca_live_api_key"
	AlpacaLiveAPISecret  = "alpaca_live_api_secret"
	SlackBotToken        = "slack_bot_token"
	TelegramBotToken     = "telegram_bot_token"
	ETFPicks             = "etf_picks"
)

// Env reads secrets from environment variables named after the upper-cased
// secret name.
type Env struct {
	lookup func(string) (string, bool)
}

var _ interfaces.SecretSource = (*Env)(nil)

func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

func EnvName(name string) string {
	return strings.ToUpper(name)
}

func (e *Env) Secret(_ context.Context, name string) (string, error) {
	v, ok := e.lookup(EnvName(name))
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return strings.TrimSpace(v), nil
}

// Chain asks each source in order and returns the first hit. Errors other
// than ErrNotFound stop the lookup.
type Chain []interfaces.SecretSource

var _ interfaces.SecretSource = Chain(nil)

func (c Chain) Secret(ctx context.Context, name string) (string, error) {
	for _, src := range c {
		v, err := src.Secret(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Credentials holds every resolved secret. Absent optional secrets are
// empty; constructors reject the ones they need.
type Credentials struct {
	FinnhubAPIKey string
	AlpacaKeyID   string
	AlpacaSecret  string
	SlackToken    string
	TelegramToken string
	ETFPicks      []string
}

// Resolve looks every secret up once. Alpaca credentials follow the
// account type.
func Resolve(ctx context.Context, src interfaces.SecretSource, account types.AccountType) (*Credentials, error) {
	keyName, secretName := AlpacaPaperAPIKey, AlpacaPaperAPISecret
	if account == types.AccountLive {
		keyName, secretName = AlpacaLiveAPIKey, AlpacaLiveAPISecret
	}

	var creds Credentials
	var picks string
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{FinnhubAPIKey, &creds.FinnhubAPIKey},
		{keyName, &creds.AlpacaKeyID},
		{secretName, &creds.AlpacaSecret},
		{SlackBotToken, &creds.SlackToken},
		{TelegramBotToken, &creds.TelegramToken},
		{ETFPicks, &picks},
	} {
		v, err := src.Secret(ctx, f.name)
		switch {
		case errors.Is(err, ErrNotFound):
			logger.Debug(ctx, "Secret not set", "name", f.name)
		case err != nil:
			return nil, fmt.Errorf("resolve %s: %w", f.name, err)
		default:
			*f.dst = v
		}
	}
	creds.ETFPicks = store.SplitSymbols(picks)
	return &creds, nil
}
