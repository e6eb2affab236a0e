package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"humpday-trader/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, types.AccountPaper, cfg.AccountType)
	assert.Equal(t, 30, cfg.Rebalance.LookbackDays)
	assert.Equal(t, 60, cfg.Rebalance.MaxSettlementRetries)
	assert.Equal(t, 0.85, cfg.Rebalance.StopLossRatio)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 5, cfg.Retry.DelaySec)
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 20 * time.Second, time.Minute, 5 * time.Minute}, cfg.SettlementDelays())
	assert.Equal(t, "log", cfg.Chat.Sink)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
account_type: live
rebalance:
  etfs: [QQQ, SPY]
  cash_to_set_aside: 250
  sell_balancing: true
daytrade:
  after_prospect: 30m
  after_trade: 2h
chat:
  sink: slack
  slack_channels:
    bot-test: C123
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, types.AccountLive, cfg.AccountType)
	assert.Equal(t, []string{"QQQ", "SPY"}, cfg.Rebalance.ETFs)
	assert.EqualValues(t, 250, cfg.Rebalance.CashToSetAside)
	assert.True(t, cfg.Rebalance.SellBalancing)
	assert.Equal(t, "C123", cfg.Chat.SlackChannels["bot-test"])

	afterProspect, afterTrade := cfg.Suspends()
	assert.Equal(t, 30*time.Minute, afterProspect)
	assert.Equal(t, 2*time.Hour, afterTrade)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ACCOUNT_TYPE", "LIVE")
	t.Setenv("ETF_PICKS", " qqq, vti ,,spy")
	t.Setenv("CASH_TO_SET_ASIDE", "1000")

	cfg, err := LoadConfig(writeConfig(t, "account_type: paper\n"))
	require.NoError(t, err)

	assert.Equal(t, types.AccountLive, cfg.AccountType)
	assert.Equal(t, []string{"QQQ", "VTI", "SPY"}, cfg.Rebalance.ETFs)
	assert.EqualValues(t, 1000, cfg.Rebalance.CashToSetAside)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"account type": "account_type: margin\n",
		"reserve":      "rebalance:\n  cash_to_set_aside: -5\n",
		"stop ratio":   "rebalance:\n  stop_loss_ratio: 1.5\n",
		"timezone":     "rebalance:\n  market_timezone: Mars/Olympus\n",
		"suspend":      "daytrade:\n  after_trade: soon\n",
		"chat sink":    "chat:\n  sink: carrier-pigeon\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestSplitSymbols(t *testing.T) {
	assert.Equal(t, []string{"QQQ", "SPY"}, SplitSymbols("qqq, spy"))
	assert.Nil(t, SplitSymbols(" , "))
}
