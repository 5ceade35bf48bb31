package notify

import (
	"context"

	"golang.org/x/time/rate"

	kit "tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
)

// Sender is the slice of the transport adapter fan-out needs.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendDocument(ctx context.Context, to kit.ChatTarget, doc kit.Document) error
}

// Notifier delivers one message (optionally with an attachment) to a
// recipient set. Delivery is best-effort: an individual failure is logged
// and skipped, it never aborts the remaining recipients. Sends are rate
// limited to stay under Telegram's per-bot limits.
type Notifier struct {
	sender  Sender
	log     logx.Logger
	limiter *rate.Limiter
}

func NewNotifier(sender Sender, ratePerSec int, log logx.Logger) *Notifier {
	if ratePerSec <= 0 {
		ratePerSec = 20
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{
		sender:  sender,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
	}
}

// Broadcast sends text to every recipient and returns the delivered count.
func (n *Notifier) Broadcast(ctx context.Context, recipients []int64, text string, opt *kit.SendOptions) int {
	sent := 0
	for _, id := range recipients {
		if err := n.limiter.Wait(ctx); err != nil {
			return sent
		}
		if _, err := n.sender.SendText(ctx, kit.ChatTarget{ChatID: id}, text, opt); err != nil {
			n.log.Warn("notification delivery failed", logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		sent++
	}
	return sent
}

// BroadcastDocument sends a file to every recipient, best-effort.
func (n *Notifier) BroadcastDocument(ctx context.Context, recipients []int64, doc kit.Document) int {
	sent := 0
	for _, id := range recipients {
		if err := n.limiter.Wait(ctx); err != nil {
			return sent
		}
		if err := n.sender.SendDocument(ctx, kit.ChatTarget{ChatID: id}, doc); err != nil {
			n.log.Warn("document delivery failed", logx.Int64("chat_id", id), logx.Err(err))
			continue
		}
		sent++
	}
	return sent
}
