package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportDeliveryColumns = []string{"id", "recipients", "provider", "provider_message_id", "total_transactions", "total_revenue", "sent_by", "sent_at"}

func TestBuildSummaryReportEmail(t *testing.T) {
	srv := newTestServer(t)
	report := testSummaryReport(t)

	msg, err := srv.app.buildSummaryReportEmail(report, []string{"owner@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Ringkasan transaksi Gemitra - 01-04-2024", msg.Subject)
	assert.Equal(t, []string{"owner@example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "<strong>Rp 150.000</strong>")
	assert.Contains(t, msg.Text, "Kendaraan terfavorit: Bus\n")
	assert.Contains(t, msg.Text, "Bulan tersibuk: Maret\n")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "ringkasan-transaksi-20240401-0830.pdf", msg.Attachments[0].Filename)
}

func TestBuildSummaryReportEmailEscapesLabels(t *testing.T) {
	srv := newTestServer(t)
	report := testSummaryReport(t)
	report.Summary.MostFrequentVehicle = "<b>Bus</b>"

	msg, err := srv.app.buildSummaryReportEmail(report, []string{"owner@example.com"})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTML, "<b>Bus</b>")
	assert.Contains(t, msg.HTML, "&lt;b&gt;Bus&lt;/b&gt;")
}

func TestSendSummaryReportIgnoresRecordFailure(t *testing.T) {
	srv := newTestServer(t)
	srv.app.recordReportDelivery = func(ctx context.Context, delivery ReportDelivery) error {
		return errors.New("database is read-only")
	}

	delivery, err := srv.app.sendSummaryReport(context.Background(), "scheduler")
	require.NoError(t, err)
	assert.Equal(t, "scheduler", delivery.SentBy)
	assert.Equal(t, 0, delivery.TotalTransactions)
	assert.Len(t, srv.mail.sent, 1)
}

func TestSendSummaryReportWithoutRecipients(t *testing.T) {
	srv := newTestServer(t)
	srv.app.cfg.ReportEmailTo = nil

	_, err := srv.app.sendSummaryReport(context.Background(), "scheduler")
	requireAPIError(t, err, http.StatusBadRequest, "no_recipients")
	assert.Empty(t, srv.mail.sent)
}

func TestStoreRecordReportDelivery(t *testing.T) {
	app, mock := newSQLMockApp(t)
	sentAt := time.Date(2024, 4, 1, 1, 30, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO report_deliveries`).
		WithArgs("a@example.com,b@example.com", "resend", "msg-1", 3, "150000", "admin@example.com", sentAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := app.storeRecordReportDelivery(context.Background(), ReportDelivery{
		Recipients:        []string{"a@example.com", "b@example.com"},
		Provider:          "resend",
		ProviderMessageID: "msg-1",
		TotalTransactions: 3,
		TotalRevenue:      decimal.NewFromInt(150000),
		SentBy:            "admin@example.com",
		SentAt:            sentAt,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListReportDeliveries(t *testing.T) {
	app, mock := newSQLMockApp(t)
	sentAt := time.Date(2024, 4, 1, 1, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, recipients, provider`).
		WithArgs(defaultDeliveryListLimit).
		WillReturnRows(sqlmock.NewRows(reportDeliveryColumns).
			AddRow(int64(2), "a@example.com, b@example.com", "resend", "msg-2", 3, "150000.50", "scheduler", sentAt))

	deliveries, err := app.storeListReportDeliveries(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, int64(2), deliveries[0].ID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, deliveries[0].Recipients)
	assert.Equal(t, "150000.5", deliveries[0].TotalRevenue.String())
	assert.Equal(t, "scheduler", deliveries[0].SentBy)
	require.NoError(t, mock.ExpectationsWereMet())
}
