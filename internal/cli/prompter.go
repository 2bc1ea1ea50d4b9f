package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/diboas/diboas-go/internal/model"
)

// Prompter asks the user to confirm a transaction before submission.
type Prompter struct {
	reader *NonBlockingReader
	writer io.Writer
}

// NewPrompter creates a prompter reading from input, writing to output.
func NewPrompter(input io.Reader, output io.Writer) *Prompter {
	return &Prompter{
		reader: NewNonBlockingReader(input),
		writer: output,
	}
}

// ConfirmTransaction shows the transaction and its fee quote, then asks
// for a yes/no answer. Returns false on anything but an explicit yes.
func (p *Prompter) ConfirmTransaction(ctx context.Context, d model.TransactionDescriptor, quote *model.FeeBreakdown) (bool, error) {
	fmt.Fprintln(p.writer, FormatTitle(describeDescriptor(d)))
	fmt.Fprintln(p.writer, RenderFeeBreakdown(quote))
	if quote != nil {
		total, _ := quote.Total.Float64()
		fmt.Fprintf(p.writer, "\n  You pay %s in total\n\n", BoldStyle.Render(FormatMoney(d.Amount+total)))
	}
	fmt.Fprint(p.writer, FormatPrompt("Confirm? [y/N]"))

	answer, err := p.reader.ReadLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// describeDescriptor summarizes a transaction in one line.
func describeDescriptor(d model.TransactionDescriptor) string {
	switch d.Type {
	case model.TypeSend:
		return fmt.Sprintf("Send %s to %s", FormatMoney(d.Amount), d.Recipient)
	case model.TypeTransfer:
		return fmt.Sprintf("Transfer %s to %s on %s", FormatMoney(d.Amount), d.Recipient, d.Chain)
	case model.TypeBuy:
		return fmt.Sprintf("Buy %s of %s on %s", FormatMoney(d.Amount), d.Asset, d.Chain)
	case model.TypeSell:
		return fmt.Sprintf("Sell %s of %s", FormatMoney(d.Amount), d.Asset)
	case model.TypeAdd:
		return fmt.Sprintf("Add %s via %s", FormatMoney(d.Amount), d.PaymentMethod)
	case model.TypeWithdraw:
		return fmt.Sprintf("Withdraw %s via %s", FormatMoney(d.Amount), d.PaymentMethod)
	case model.TypeStartStrategy:
		return fmt.Sprintf("Start strategy with %s on %s", FormatMoney(d.Amount), d.Chain)
	case model.TypeStopStrategy:
		return fmt.Sprintf("Stop strategy, returning %s", FormatMoney(d.Amount))
	default:
		return fmt.Sprintf("%s %s", d.Type, FormatMoney(d.Amount))
	}
}
