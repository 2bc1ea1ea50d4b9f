package cli

import (
	"fmt"
	"strings"

	"github.com/diboas/diboas-go/internal/model"
)

// FormatMoney renders a USD amount for display. Fee totals keep more
// precision than balances because network fees on cheap chains are tiny.
func FormatMoney(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatFee renders a fee amount without losing sub-cent components.
func FormatFee(amount float64) string {
	s := fmt.Sprintf("%.6f", amount)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if !strings.Contains(s, ".") {
		s += ".00"
	}
	return "$" + s
}

// RenderFeeBreakdown renders a fee quote as an aligned component list.
func RenderFeeBreakdown(quote *model.FeeBreakdown) string {
	if quote == nil {
		return SubtleStyle.Render("no fee quote available")
	}

	var b strings.Builder
	for _, component := range quote.Breakdown {
		amount, _ := component.Amount.Float64()
		rate, _ := component.Rate.Float64()
		fmt.Fprintf(&b, "  %-10s %12s  %s\n",
			component.Name,
			FormatFee(amount),
			SubtleStyle.Render(fmt.Sprintf("(%.4f%%)", rate*100)))
	}
	total, _ := quote.Total.Float64()
	fmt.Fprintf(&b, "  %-10s %12s\n", BoldStyle.Render("total"), BoldStyle.Render(FormatFee(total)))
	return strings.TrimRight(b.String(), "\n")
}

// RenderBalance renders the balance buckets.
func RenderBalance(balance *model.Balance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-12s %12s\n", "Available", FormatMoney(balance.Available))
	fmt.Fprintf(&b, "  %-12s %12s\n", "Invested", FormatMoney(balance.Invested))
	fmt.Fprintf(&b, "  %-12s %12s\n", "Strategies", FormatMoney(balance.Strategy))
	fmt.Fprintf(&b, "  %-12s %12s\n", BoldStyle.Render("Total"), BoldStyle.Render(FormatMoney(balance.Total())))

	if len(balance.Assets) > 0 {
		b.WriteString("\n  Positions:\n")
		for _, asset := range balance.Assets {
			fmt.Fprintf(&b, "    %-8s %12s\n", asset.Asset, FormatMoney(asset.InvestedAmount))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTransactionRow renders one history record as a table row.
func RenderTransactionRow(record *model.TransactionRecord) string {
	status := string(record.Status)
	switch record.Status {
	case model.RecordCompleted:
		status = SuccessStyle.Render(status)
	case model.RecordFailed:
		status = ErrorStyle.Render(status)
	case model.RecordUnconfirmed:
		status = WarningStyle.Render(status)
	}

	return fmt.Sprintf("%s  %-14s %10s  %s",
		record.CreatedAt.Format("2006-01-02 15:04"),
		record.Type,
		FormatMoney(record.Amount),
		status)
}

// RenderStrategyRow renders one strategy as a table row.
func RenderStrategyRow(strategy *model.Strategy) string {
	return fmt.Sprintf("%-20s %-10s %8.2f%%  %10s  %s",
		strategy.Name,
		strategy.Chain,
		strategy.APY*100,
		FormatMoney(strategy.InvestedAmount),
		string(strategy.Status))
}
