// Package ofx imports bank statements in OFX/QFX format, turning posted
// credits and debits into completed add and withdraw records so a user's
// outside banking history lands in the platform ledger.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
)

// Parser parses OFX/QFX statement files.
type Parser struct{}

// NewParser creates an OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, func(match string) string {
		return strings.ToUpper(match)
	})

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file into platform transaction records for
// the given user. Credits become add records, debits become withdraw
// records; everything a bank has already posted is final, so every record
// is completed.
func (p *Parser) ParseFile(_ context.Context, userID string, reader io.Reader) ([]model.TransactionRecord, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var records []model.TransactionRecord
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			records = append(records, p.processStatement(userID, stmt.BankTranList)...)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			records = append(records, p.processStatement(userID, stmt.BankTranList)...)
		}
	}

	slog.Info("Parsed OFX file",
		"records", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, nil
}

func (p *Parser) processStatement(userID string, list *ofxgo.TransactionList) []model.TransactionRecord {
	if list == nil {
		return nil
	}

	records := make([]model.TransactionRecord, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		records = append(records, p.convertTransaction(userID, ofxTx))
	}
	return records
}

// convertTransaction maps one OFX transaction onto a platform record.
// OFX amounts are negative for debits.
func (p *Parser) convertTransaction(userID string, ofxTx ofxgo.Transaction) model.TransactionRecord {
	amount, _ := ofxTx.TrnAmt.Float64()

	txType := model.TypeAdd
	if amount < 0 {
		txType = model.TypeWithdraw
		amount = -amount
	}

	record := model.TransactionRecord{
		CreatedAt:     ofxTx.DtPosted.Time,
		ID:            model.NewID("txn"),
		UserID:        userID,
		Type:          txType,
		Status:        model.RecordCompleted,
		Asset:         "USD",
		PaymentMethod: model.MethodBankAccount,
		Description:   p.describe(ofxTx),
		Amount:        amount,
	}

	// Hash on the bank's own transaction ID so re-importing the same
	// statement dedupes regardless of our generated record ID.
	record.TxHash = string(ofxTx.FiTID)
	record.Hash = record.GenerateHash()
	return record
}

// describe builds a readable description from the OFX fields, preferring
// the payee name when present.
func (p *Parser) describe(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := strings.TrimSpace(string(tx.Name))
	if tx.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(tx.Memo))
	}
	if name == "" {
		name = "Bank statement entry"
	}
	return name
}

// isGenericDescription checks if a transaction name is too generic to show.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Importer parses statements and persists the records, skipping entries
// already imported.
type Importer struct {
	parser  *Parser
	storage service.Storage
}

// NewImporter creates an importer backed by the given storage.
func NewImporter(storage service.Storage) *Importer {
	return &Importer{parser: NewParser(), storage: storage}
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Imported int
	Skipped  int
}

// Import parses the statement and saves each record. Duplicates from
// re-imported statements are counted as skipped, not errors.
func (i *Importer) Import(ctx context.Context, userID string, reader io.Reader) (*ImportResult, error) {
	records, err := i.parser.ParseFile(ctx, userID, reader)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for idx := range records {
		err := i.storage.SaveTransaction(ctx, &records[idx])
		switch {
		case errors.Is(err, common.ErrDuplicateEntry):
			result.Skipped++
		case err != nil:
			return result, fmt.Errorf("failed to save imported record %s: %w", records[idx].ID, err)
		default:
			result.Imported++
		}
	}

	slog.Info("Imported OFX statement",
		"user_id", userID,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}
