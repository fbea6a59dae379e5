package main

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/menootpass/admin-gemitra/libs/mailer"
	"github.com/menootpass/admin-gemitra/libs/txreport"
	"github.com/shopspring/decimal"
)

const defaultDeliveryListLimit = 20

// ReportDelivery records one emailed summary.
type ReportDelivery struct {
	ID                int64           `json:"id"`
	Recipients        []string        `json:"recipients"`
	Provider          string          `json:"provider"`
	ProviderMessageID string          `json:"provider_message_id"`
	TotalTransactions int             `json:"total_transactions"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	SentBy            string          `json:"sent_by"`
	SentAt            time.Time       `json:"sent_at"`
}

func (a *App) buildSummaryReportEmail(report *summaryReport, recipients []string) (mailer.Message, error) {
	pdfContent, err := buildSummaryPDF(report)
	if err != nil {
		return mailer.Message{}, err
	}

	s := report.Summary
	generated := report.GeneratedAt.Format("02-01-2006 15:04 MST")
	subject := fmt.Sprintf("Ringkasan transaksi Gemitra - %s", report.GeneratedAt.Format("02-01-2006"))

	var rows strings.Builder
	for _, row := range summaryRows(s) {
		fmt.Fprintf(&rows, `<tr><td style="padding: 4px 12px 4px 0; color: #666;">%s</td><td style="padding: 4px 0;"><strong>%s</strong></td></tr>`,
			html.EscapeString(row[0]), html.EscapeString(row[1]))
	}

	htmlBody := fmt.Sprintf(`
		<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; line-height: 1.6; color: #333;">
			<h2>Ringkasan transaksi</h2>
			<p>Berikut ringkasan transaksi per %s.</p>
			<table style="border-collapse: collapse;">%s</table>
			<p style="font-size: 14px; color: #666;">Laporan lengkap terlampir dalam format PDF.</p>
		</div>
	`, html.EscapeString(generated), rows.String())

	var text strings.Builder
	fmt.Fprintf(&text, "Ringkasan transaksi per %s\n\n", generated)
	for _, row := range summaryRows(s) {
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
	}
	text.WriteString("\nLaporan lengkap terlampir dalam format PDF.\n")

	return mailer.Message{
		To:      recipients,
		Subject: subject,
		HTML:    htmlBody,
		Text:    text.String(),
		Attachments: []mailer.Attachment{
			{Filename: report.fileName(exportFormatPDF), Content: pdfContent},
		},
	}, nil
}

// sendSummaryReport mails the current summary to the configured recipients
// and records the delivery when a database is attached.
func (a *App) sendSummaryReport(ctx context.Context, sentBy string) (*ReportDelivery, error) {
	recipients := a.cfg.ReportEmailTo
	if len(recipients) == 0 {
		return nil, &apiError{Status: http.StatusBadRequest, Code: "no_recipients", Message: "REPORT_EMAIL_TO is not configured"}
	}

	report, err := a.buildSummaryReport(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := a.buildSummaryReportEmail(report, recipients)
	if err != nil {
		return nil, err
	}

	result, err := a.mailer.Send(ctx, msg)
	if err != nil {
		a.log.Error("failed to send summary report email", "recipients", strings.Join(recipients, ","), "err", err)
		return nil, fmt.Errorf("send summary report: %w", err)
	}

	delivery := ReportDelivery{
		Recipients:        recipients,
		Provider:          a.mailer.ProviderName(),
		ProviderMessageID: result.ProviderMessageID,
		TotalTransactions: report.Summary.TotalTransactions,
		TotalRevenue:      report.Summary.TotalRevenue,
		SentBy:            sentBy,
		SentAt:            time.Now().UTC(),
	}
	if a.recordReportDelivery != nil {
		if err := a.recordReportDelivery(ctx, delivery); err != nil {
			a.log.Error("failed to record report delivery", "err", err)
		}
	}

	a.log.Info("sent summary report email",
		"recipients", len(recipients),
		"provider", delivery.Provider,
		"total_transactions", delivery.TotalTransactions,
		"total_revenue", txreport.FormatRupiah(delivery.TotalRevenue),
	)
	return &delivery, nil
}

func (a *App) storeRecordReportDelivery(ctx context.Context, delivery ReportDelivery) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO report_deliveries (recipients, provider, provider_message_id, total_transactions, total_revenue, sent_by, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, strings.Join(delivery.Recipients, ","), delivery.Provider, delivery.ProviderMessageID,
		delivery.TotalTransactions, delivery.TotalRevenue, delivery.SentBy, delivery.SentAt)
	return err
}

func (a *App) storeListReportDeliveries(ctx context.Context, limit int) ([]ReportDelivery, error) {
	if limit <= 0 {
		limit = defaultDeliveryListLimit
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, recipients, provider, provider_message_id, total_transactions, total_revenue, sent_by, sent_at
		FROM report_deliveries
		ORDER BY sent_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []ReportDelivery{}
	for rows.Next() {
		var d ReportDelivery
		var recipients string
		if err := rows.Scan(&d.ID, &recipients, &d.Provider, &d.ProviderMessageID, &d.TotalTransactions, &d.TotalRevenue, &d.SentBy, &d.SentAt); err != nil {
			return nil, err
		}
		d.Recipients = mailer.SplitRecipients(recipients)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}
