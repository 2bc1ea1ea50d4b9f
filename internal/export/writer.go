package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/diboas/diboas-go/internal/common"
	"github.com/diboas/diboas-go/internal/model"
	"github.com/diboas/diboas-go/internal/service"
)

// Writer exports transaction history to Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a Google Sheets exporter.
func NewWriter(ctx context.Context, config Config) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: srv,
		logger:  slog.Default().With("component", "export"),
	}, nil
}

// Sheet tab titles.
const (
	sheetTransactions = "Transactions"
	sheetFees         = "Fees"
	sheetStrategies   = "Strategies"
)

// Export writes the balance summary, transaction history, fee summary and
// strategy performance to the configured spreadsheet, replacing its
// previous contents. It returns the spreadsheet ID, creating a new
// spreadsheet when none is configured.
func (w *Writer) Export(ctx context.Context, balance *model.Balance, records []model.TransactionRecord, strategies []model.Strategy) (string, error) {
	w.logger.Info("Starting export", "records", len(records), "strategies", len(strategies))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	tabs := map[string][][]any{
		sheetTransactions: prepareExportData(balance, records),
		sheetFees:         prepareFeeSummary(records),
		sheetStrategies:   prepareStrategyData(strategies),
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	rows := 0
	for _, title := range []string{sheetTransactions, sheetFees, sheetStrategies} {
		if err := w.ensureSheet(ctx, spreadsheetID, title); err != nil {
			return "", fmt.Errorf("failed to prepare tab %s: %w", title, err)
		}
		if clearErr := w.clearSheet(ctx, spreadsheetID, title); clearErr != nil {
			return "", fmt.Errorf("failed to clear tab %s: %w", title, clearErr)
		}

		values := tabs[title]
		err = common.WithRetry(ctx, func() error {
			return w.writeData(ctx, spreadsheetID, title, values)
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to write tab %s: %w", title, err)
		}
		rows += len(values)
	}

	w.logger.Info("Export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", rows)
	return spreadsheetID, nil
}

// createSheetsService creates a Google Sheets API service using either a
// service account key or OAuth2 refresh-token credentials.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet gets the configured spreadsheet or creates one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: sheetTransactions}},
			{Properties: &sheets.SheetProperties{Title: sheetFees}},
			{Properties: &sheets.SheetProperties{Title: sheetStrategies}},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// ensureSheet adds the named tab when the spreadsheet lacks it.
func (w *Writer) ensureSheet(ctx context.Context, spreadsheetID, title string) error {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return nil
		}
	}

	request := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	_, err = w.service.Spreadsheets.BatchUpdate(spreadsheetID, request).Context(ctx).Do()
	return err
}

// clearSheet clears all data from one tab.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID, title string) error {
	rangeRef := fmt.Sprintf("%s!A:Z", title)
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, rangeRef, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes rows to one tab in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, title string, values [][]any) error {
	for start := 0; start < len(values); start += w.config.BatchSize {
		end := start + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		valueRange := &sheets.ValueRange{Values: values[start:end]}
		rangeRef := fmt.Sprintf("%s!A%d", title, start+1)
		_, err := w.service.Spreadsheets.Values.
			Update(spreadsheetID, rangeRef, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch at row %d: %w", start+1, err)
		}
	}
	return nil
}

// prepareExportData lays out the balance summary followed by one row per
// transaction, newest first as the storage layer returns them.
func prepareExportData(balance *model.Balance, records []model.TransactionRecord) [][]any {
	values := make([][]any, 0, 10+len(records))

	values = append(values,
		[]any{"diBoaS Transaction Export", time.Now().Format("Jan 2, 2006")},
		[]any{},
		[]any{"Balance Summary"},
		[]any{"Available", balance.Available},
		[]any{"Invested", balance.Invested},
		[]any{"Strategies", balance.Strategy},
		[]any{"Total", balance.Total()},
		[]any{},
		[]any{"Transactions"},
		[]any{"Date", "Type", "Status", "Amount", "Fees", "Asset", "Chain", "Payment Method", "Recipient", "Description", "Explorer"},
	)

	for _, record := range records {
		values = append(values, []any{
			record.CreatedAt.Format("2006-01-02 15:04"),
			string(record.Type),
			string(record.Status),
			record.Amount,
			record.FeeTotal,
			record.Asset,
			string(record.Chain),
			string(record.PaymentMethod),
			record.Recipient,
			record.Description,
			record.ExplorerLink,
		})
	}

	return values
}

// prepareFeeSummary aggregates fees paid by transaction type. Failed
// records never carry fees, so they contribute nothing.
func prepareFeeSummary(records []model.TransactionRecord) [][]any {
	totals := make(map[model.TransactionType]float64)
	counts := make(map[model.TransactionType]int)
	grandTotal := 0.0

	for _, record := range records {
		if record.Status == model.RecordFailed {
			continue
		}
		totals[record.Type] += record.FeeTotal
		counts[record.Type]++
		grandTotal += record.FeeTotal
	}

	values := [][]any{
		{"Fee Summary"},
		{},
		{"Type", "Transactions", "Fees Paid"},
	}
	for _, txType := range model.AllTransactionTypes {
		if counts[txType] == 0 {
			continue
		}
		values = append(values, []any{string(txType), counts[txType], totals[txType]})
	}
	values = append(values, []any{}, []any{"Total", "", grandTotal})
	return values
}

// prepareStrategyData lays out one row per strategy position.
func prepareStrategyData(strategies []model.Strategy) [][]any {
	values := [][]any{
		{"Strategy Performance"},
		{},
		{"Name", "Protocol", "Chain", "Status", "Invested", "Current Value", "APY %", "Started"},
	}

	for _, strategy := range strategies {
		values = append(values, []any{
			strategy.Name,
			strategy.Protocol,
			string(strategy.Chain),
			string(strategy.Status),
			strategy.InvestedAmount,
			strategy.CurrentValue,
			strategy.APY * 100,
			strategy.CreatedAt.Format("2006-01-02"),
		})
	}

	return values
}
