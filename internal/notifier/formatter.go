package notifier

import (
	"fmt"
	"math/big"
	"strings"

	"YieldFarm/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// maxListedPayouts caps the per-staker lines in an issuance report.
const maxListedPayouts = 20

// Units renders a raw integer amount as a decimal with the given precision.
func Units(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

func short(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}

// FormatIssuanceReport formats a completed issuance run into a Telegram message.
func FormatIssuanceReport(rep *model.IssuanceReport, rewardSymbol string, rewardDecimals, valueDecimals uint8) string {
	var b strings.Builder

	verb := "paid"
	if rep.Mode == model.RewardPull {
		verb = "accrued"
	}
	b.WriteString(fmt.Sprintf("🌾 <b>Reward issuance</b> | %s\n\n", rep.At.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", rep.ID))
	b.WriteString(fmt.Sprintf("Mode: %s\n", rep.Mode))
	b.WriteString(fmt.Sprintf("Stakers: %d | Recipients: %d\n", len(rep.Payouts), rep.Recipients()))
	b.WriteString(fmt.Sprintf("Total %s: %s %s\n", verb, Units(rep.Total, rewardDecimals), rewardSymbol))

	if len(rep.Payouts) > 0 {
		b.WriteString("\n<b>Payouts:</b>\n")
	}
	for i, p := range rep.Payouts {
		if i == maxListedPayouts {
			b.WriteString(fmt.Sprintf("  … and %d more\n", len(rep.Payouts)-maxListedPayouts))
			break
		}
		b.WriteString(fmt.Sprintf("  %s value %s → %s %s\n",
			short(p.User), Units(p.Value, valueDecimals), Units(p.Reward, rewardDecimals), rewardSymbol))
	}
	return b.String()
}

// FormatLedgerStatus formats the ledger summary for display.
func FormatLedgerStatus(st *model.LedgerStatus) string {
	var b strings.Builder
	b.WriteString("📦 <b>Ledger status</b>\n\n")
	b.WriteString(fmt.Sprintf("Owner: <code>%s</code>\n", st.Owner.Hex()))
	b.WriteString(fmt.Sprintf("Reward asset: <code>%s</code> (%s)\n", st.RewardAsset.Hex(), st.Mode))
	b.WriteString(fmt.Sprintf("Stakers: %d\n", st.StakerCount))
	b.WriteString(fmt.Sprintf("Credit applications: %d\n", st.Applications))
	if len(st.Assets) > 0 {
		b.WriteString("\n<b>Assets:</b>\n")
	}
	for _, e := range st.Assets {
		flag := "✅"
		if !e.Allowed {
			flag = "⛔"
		}
		feed := "no feed"
		if e.PriceFeed != nil {
			feed = "feed " + short(*e.PriceFeed)
		}
		b.WriteString(fmt.Sprintf("  %s %s staked %s (%s)\n",
			flag, e.Asset.Symbol, Units(st.TotalStaked[e.Asset.Address], e.Asset.Decimals), feed))
	}
	b.WriteString(fmt.Sprintf("\nUpdated: %s\n", st.UpdatedAt.Format("2006-01-02 15:04")))
	return b.String()
}

// FormatStakers lists stakers in first-stake order.
func FormatStakers(stakers []common.Address) string {
	if len(stakers) == 0 {
		return "No stakers yet."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("👥 <b>Stakers</b> (%d)\n\n", len(stakers)))
	for i, s := range stakers {
		b.WriteString(fmt.Sprintf("%d. <code>%s</code>\n", i, s.Hex()))
	}
	return b.String()
}
