package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"marketpulse/internal/domain"

	tele "gopkg.in/telebot.v3"
)

// AnalysisProvider is the service surface the bot needs.
type AnalysisProvider interface {
	Latest(ctx context.Context) (*domain.AnalysisReport, error)
	AnalyzeSymbol(ctx context.Context, symbol string) (*domain.StockAnalysis, error)
}

// TelegramBot serves report commands and pushes finished runs to the
// configured chat.
type TelegramBot struct {
	bot    *tele.Bot
	chatID int64
}

// StartTelegramBot wires the command handlers and starts long polling.
// Returns nil when no token is configured. runNow triggers an immediate
// batch run and must not block.
func StartTelegramBot(svc AnalysisProvider, runNow func(), chatID int64) *TelegramBot {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/report", func(c tele.Context) error {
		report, err := svc.Latest(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("No report yet: %v", err))
		}
		return sendChunks(c, FormatReport(report))
	})

	b.Handle("/run", func(c tele.Context) error {
		if runNow == nil {
			return c.Send("Manual runs are not enabled")
		}
		runNow()
		return c.Send("Run started, report follows when finished")
	})

	b.Handle("/signal", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /signal AAPL")
		}
		symbol := strings.ToUpper(args[0])
		analysis, err := svc.AnalyzeSymbol(context.Background(), symbol)
		if err != nil {
			return c.Send(fmt.Sprintf("Error analyzing %s: %v", symbol, err))
		}
		return sendChunks(c, formatAnalysis(analysis))
	})

	b.Handle("/premium", func(c tele.Context) error {
		report, err := svc.Latest(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("No report yet: %v", err))
		}
		if len(report.Premium.Premiums) == 0 {
			return c.Send("No premium data in the latest report")
		}
		return sendChunks(c, FormatPremium(&report.Premium))
	})

	log.Println("Telegram bot started")
	go b.Start()

	return &TelegramBot{bot: b, chatID: chatID}
}

func sendChunks(c tele.Context, text string) error {
	for _, chunk := range ChunkMessage(text) {
		if err := c.Send(chunk); err != nil {
			return err
		}
	}
	return nil
}

// SendReport pushes a finished report to the configured chat.
func (t *TelegramBot) SendReport(report *domain.AnalysisReport) {
	if t.chatID == 0 {
		return
	}
	recipient := tele.ChatID(t.chatID)
	for _, chunk := range ChunkMessage(FormatReport(report)) {
		if _, err := t.bot.Send(recipient, chunk); err != nil {
			log.Printf("failed to push report chunk: %v", err)
			return
		}
	}
}

// SendError pushes a run failure notice to the configured chat.
func (t *TelegramBot) SendError(err error) {
	if t.chatID == 0 {
		return
	}
	if _, sendErr := t.bot.Send(tele.ChatID(t.chatID), fmt.Sprintf("Analysis run failed: %v", err)); sendErr != nil {
		log.Printf("failed to push error notice: %v", sendErr)
	}
}
