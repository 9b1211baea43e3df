// Command render-voucher renders a single voucher PDF locally, without
// touching the record store or Google. It is used to check layouts and logos.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/garyjia/voucher-sync/internal/domain/entity"
	"github.com/garyjia/voucher-sync/internal/voucher"
	"github.com/garyjia/voucher-sync/pkg/utils"
)

func main() {
	var (
		category = flag.String("category", entity.CategoryContentstack, "company category")
		number   = flag.Int("number", 1, "voucher number")
		date     = flag.String("date", time.Now().Format("2006-01-02"), "voucher date, any common layout")
		payee    = flag.String("payee", "", "payee name")
		head     = flag.String("account-head", "", "account head")
		towards  = flag.String("towards", "", "purpose of payment")
		txType   = flag.String("type", entity.TransactionCash, "transaction type (UPI, Cash, Account)")
		amount   = flag.String("amount", "0", "amount")
		words    = flag.String("words", "", "amount in words; spelled out from -amount when empty")
		logoDir  = flag.String("logos", "assets/logos", "logo directory")
		out      = flag.String("out", "voucher.pdf", "output PDF path")
		preview  = flag.String("preview", "", "also write a PNG of the first page to this path")
	)
	flag.Parse()

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	parsed, err := dateparse.ParseLocal(*date)
	if err != nil {
		logger.Fatal("Unrecognized date", zap.String("date", *date), zap.Error(err))
	}

	v := &entity.Voucher{
		Category:        *category,
		Number:          *number,
		Date:            parsed.Format("2006-01-02"),
		Payee:           *payee,
		AccountHead:     *head,
		Towards:         *towards,
		TransactionType: *txType,
		Amount:          *amount,
		AmountInWords:   *words,
	}
	if !entity.IsValidCategory(v.Category) {
		logger.Fatal("Unknown category", zap.String("category", v.Category), zap.Strings("valid", entity.Categories))
	}
	if v.AmountInWords == "" {
		v.AmountInWords = voucher.AmountInWords(v.Amount)
	}

	var buf bytes.Buffer
	renderer := voucher.NewPDFRenderer(voucher.NewLogoSet(*logoDir), logger)
	if err := renderer.Render(context.Background(), v, &buf); err != nil {
		logger.Fatal("Render failed", zap.Error(err))
	}

	if err := os.WriteFile(*out, buf.Bytes(), 0644); err != nil {
		logger.Fatal("Failed to write PDF", zap.String("path", *out), zap.Error(err))
	}
	pages, err := voucher.PageCount(buf.Bytes())
	if err != nil {
		logger.Fatal("Rendered PDF is unreadable", zap.Error(err))
	}
	if pages != 1 {
		logger.Warn("Voucher spilled onto extra pages", zap.Int("pages", pages))
	}
	logger.Info("Voucher rendered", zap.String("path", *out), zap.Int("bytes", buf.Len()), zap.Int("pages", pages))

	if *preview == "" {
		return
	}

	f, err := os.Create(*preview)
	if err != nil {
		logger.Fatal("Failed to create preview file", zap.Error(err))
	}
	defer f.Close()

	if err := voucher.NewPreviewer(96).PreviewPNG(buf.Bytes(), f); err != nil {
		logger.Fatal("Preview failed", zap.Error(err))
	}
	logger.Info("Preview written", zap.String("path", *preview))
}
