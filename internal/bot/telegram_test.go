package bot

import "testing"

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if got := StartTelegramBot(nil, nil, 0); got != nil {
		t.Fatalf("expected nil bot without a token, got %v", got)
	}
}
