package policy

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundTier string

const (
	RefundTierFull    RefundTier = "full"
	RefundTierPartial RefundTier = "partial"
	RefundTierNone    RefundTier = "none"
)

// Settlement итог отмены: сколько вернуть клиенту и сколько выплатить компаньону
type Settlement struct {
	Tier           RefundTier
	RefundAmount   int64
	ReleasedAmount int64
	IssueStrike    bool
}

// PlatformKeeps сколько остаётся платформе
func (s Settlement) PlatformKeeps(total int64) int64 {
	return total - s.RefundAmount - s.ReleasedAmount
}

// HirerCancellation расчёт возврата при отмене клиентом в момент now.
//
//	> 48ч до начала:       100% возврат, компаньону 0
//	24ч..48ч включительно: 50% возврат, компаньону 50% от (total - fee)
//	< 24ч:                 без возврата, компаньону (total - fee), страйк клиенту
func (e *Engine) HirerCancellation(total, fee int64, start, now time.Time) Settlement {
	until := start.Sub(now)
	payout := decimal.NewFromInt(total - fee)

	switch {
	case until > e.cfg.FullRefundBefore:
		return FullRefund(total)
	case until >= e.cfg.PartialRefundBefore:
		return Settlement{
			Tier:           RefundTierPartial,
			RefundAmount:   decimal.NewFromInt(total).Mul(e.cfg.PartialRefundShare).Round(0).IntPart(),
			ReleasedAmount: payout.Mul(e.cfg.PartialRefundShare).Round(0).IntPart(),
		}
	default:
		return Settlement{
			Tier:           RefundTierNone,
			RefundAmount:   0,
			ReleasedAmount: payout.IntPart(),
			IssueStrike:    true,
		}
	}
}

// FullRefund отмена без штрафа: отказ компаньона, истечение, экстренная отмена
func FullRefund(total int64) Settlement {
	return Settlement{Tier: RefundTierFull, RefundAmount: total}
}
