package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/companion_booking/internal/model"
)

var headlines = map[model.EventType]string{
	model.EventBookingRequested: "📩 *Новый запрос на встречу*",
	model.EventBookingConfirmed: "✅ *Встреча подтверждена*",
	model.EventBookingDeclined:  "🚫 *Запрос отклонён*",
	model.EventBookingCancelled: "❌ *Встреча отменена*",
	model.EventBookingExpired:   "⌛ *Бронирование истекло*",
	model.EventBookingStarted:   "▶️ *Встреча началась*",
	model.EventBookingCompleted: "✔️ *Встреча завершена*",
	model.EventBookingDisputed:  "⚠️ *На вас поступила жалоба о неявке*",
	model.EventPaymentCaptured:  "💳 *Оплата получена*",
	model.EventReviewReceived:   "⭐ *Новый отзыв*",
	model.EventReviewDisputed:   "⚠️ *Ваш отзыв оспорен*",
}

// plain убирает разметку из пользовательского текста
var plain = strings.NewReplacer("*", "", "_", "", "`", "", "[", "")

// Render текст сообщения для Telegram (Markdown)
func Render(n model.Notification) string {
	headline, ok := headlines[n.Event]
	if !ok {
		headline = fmt.Sprintf("*%s*", n.Event)
	}

	lines := []string{headline, ""}

	if start, ok := n.Payload["start_time"].(time.Time); ok {
		if end, ok := n.Payload["end_time"].(time.Time); ok {
			lines = append(lines, "📅 "+FormatTimeRange(start, end)+" (UTC)")
		}
	}
	if status, ok := n.Payload["status"].(string); ok {
		d := BookingStatusDisplay(model.BookingStatus(status))
		lines = append(lines, fmt.Sprintf("%s Статус: %s", d.Emoji, d.Text))
	}
	if total, ok := n.Payload["total_price"].(int64); ok {
		lines = append(lines, "💰 Сумма: "+FormatAmount(total))
	}
	if refund, ok := n.Payload["refund_amount"].(int64); ok && refund > 0 {
		lines = append(lines, "↩️ К возврату: "+FormatAmount(refund))
	}
	if reason, ok := n.Payload["reason"].(string); ok && reason != "" {
		lines = append(lines, "💬 Причина: "+plain.Replace(reason))
	}
	if rating, ok := n.Payload["rating"].(int); ok {
		lines = append(lines, fmt.Sprintf("Оценка: %d %s", rating, PluralizeStars(rating)))
	}

	lines = append(lines, "", "ID: `"+n.BookingID.String()+"`")
	return strings.Join(lines, "\n")
}
