package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Alias1177/SmartMoney/internal/model"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sender is the part of the bot API the notifier needs. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts strong signals of each result to one chat.
type TelegramNotifier struct {
	sender        Sender
	chatID        int64
	minConfidence float64
	logger        zerolog.Logger

	mu       sync.Mutex
	lastSent map[string]string // symbol -> signature of the last signals sent
}

// NewTelegramBot connects to the bot API with token.
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegramNotifier sends to chatID the signals whose confidence reaches minConfidence.
func NewTelegramNotifier(sender Sender, chatID int64, minConfidence float64) *TelegramNotifier {
	return &TelegramNotifier{
		sender:        sender,
		chatID:        chatID,
		minConfidence: minConfidence,
		lastSent:      make(map[string]string),
		logger:        log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Record sends one message when the result carries at least one strong signal. A result
// whose strong signals repeat the last message for the symbol is not sent again.
func (n *TelegramNotifier) Record(ctx context.Context, r *model.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	signals := n.strongSignals(r.Signals)
	sig := signature(signals)

	n.mu.Lock()
	defer n.mu.Unlock()
	if len(signals) == 0 {
		delete(n.lastSent, r.Symbol)
		return nil
	}
	if n.lastSent[r.Symbol] == sig {
		n.logger.Debug().Str("symbol", r.Symbol).Msg("Signals unchanged, not sent")
		return nil
	}

	msg := tgbotapi.NewMessage(n.chatID, FormatResult(r, signals))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.sender.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	n.lastSent[r.Symbol] = sig

	n.logger.Info().Str("symbol", r.Symbol).Int("signals", len(signals)).Msg("Signals sent")
	return nil
}

// signature identifies a signal set by type and direction; confidence drift is ignored.
func signature(signals []model.Signal) string {
	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		parts = append(parts, string(s.Type)+":"+string(s.Direction))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (n *TelegramNotifier) strongSignals(signals []model.Signal) []model.Signal {
	var out []model.Signal
	for _, s := range signals {
		if s.Confidence >= n.minConfidence {
			out = append(out, s)
		}
	}
	return out
}

// FormatResult renders a result summary with the given signals as Telegram Markdown.
func FormatResult(r *model.AnalysisResult, signals []model.Signal) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

	var b strings.Builder
	b.WriteString(fmt.Sprintf("*%s* %s\n", esc(r.Symbol), r.GeneratedAt.Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("*Session:* %s\n", esc(string(r.CurrentSession))))
	b.WriteString(fmt.Sprintf("*Price:* %.5f\n", r.CurrentPrice))

	if f := r.OrderFlow; f != nil {
		b.WriteString(fmt.Sprintf("*Order flow:* %s (%.0f%%)\n", esc(string(f.Direction)), f.Confidence*100))
	}
	if mm := r.MarketMakerBehavior; mm != nil && mm.Behavior != model.NormalTrading {
		b.WriteString(fmt.Sprintf("*Market maker:* %s, %s (%.0f%%)\n", esc(string(mm.Behavior)), esc(string(mm.Bias)), mm.Probability*100))
	}

	b.WriteString("\n*Signals:*\n")
	for i, s := range signals {
		b.WriteString(fmt.Sprintf("%d. %s %s %.0f%%", i+1, esc(string(s.Type)), directionMark(s.Direction), s.Confidence*100))
		if s.Details != "" {
			b.WriteString(" - " + esc(s.Details))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func directionMark(d model.Direction) string {
	switch d {
	case model.DirectionBullish:
		return "🔼"
	case model.DirectionBearish:
		return "🔽"
	default:
		return "⚖️"
	}
}
