package portfolio

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"crossbot/src/datamodels"
)

const DefaultDateLayout = time.RFC3339

// TradeLogRows renders the ledger as table rows followed by the Total summary row.
func TradeLogRows(ledger datamodels.TradeLedger, dateLayout string) []datamodels.TradeLogRow {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	rows := make([]datamodels.TradeLogRow, 0, len(ledger.Trades)+1)
	for _, trade := range ledger.Trades {
		row := datamodels.TradeLogRow{
			Date:     trade.Timestamp.Format(dateLayout),
			Type:     string(trade.Type),
			Price:    formatAmount(trade.Price),
			Quantity: strconv.Itoa(trade.Quantity),
		}
		if trade.ProfitLoss != nil {
			row.ProfitLoss = formatAmount(*trade.ProfitLoss)
		}
		rows = append(rows, row)
	}
	rows = append(rows, datamodels.TradeLogRow{
		Date:       datamodels.TradeLogTotalLabel,
		ProfitLoss: formatAmount(ledger.TotalProfitLoss),
	})
	return rows
}

func WriteTradeLog(w io.Writer, ledger datamodels.TradeLedger, dateLayout string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(datamodels.TradeLogHeader); err != nil {
		return fmt.Errorf("failed to write trade log header: %w", err)
	}
	for _, row := range TradeLogRows(ledger, dateLayout) {
		if err := csvWriter.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write trade log row: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("error flushing trade log: %w", err)
	}
	return nil
}

// ExportTradeLog writes <dir>/<modelName>_trade_log.csv and returns its path.
func ExportTradeLog(dir string, modelName string, ledger datamodels.TradeLedger, dateLayout string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create trade log directory: %w", err)
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s_trade_log.csv", modelName))
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create trade log file: %w", err)
	}
	defer f.Close()

	if err := WriteTradeLog(f, ledger, dateLayout); err != nil {
		return "", err
	}
	slog.Info("Trade log saved", "path", filename, "trades", len(ledger.Trades))
	return filename, nil
}

func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}
