package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/menootpass/admin-gemitra/libs/txreport"
	"github.com/xuri/excelize/v2"
)

const (
	exportFormatPDF  = "pdf"
	exportFormatXLSX = "xlsx"
	exportFormatCSV  = "csv"

	summarySheetName     = "Ringkasan"
	transactionSheetName = "Transaksi"
	breakdownTopLimit    = 10
)

var exportContentTypes = map[string]string{
	exportFormatPDF:  "application/pdf",
	exportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	exportFormatCSV:  "text/csv; charset=utf-8",
}

var transactionColumns = []string{
	"id", "nama", "destinasi", "penumpang", "tanggal_berangkat", "waktu_berangkat",
	"kendaraan", "total", "status", "kode", "waktu_transaksi", "tanggal_transaksi",
}

// summaryReport is one computed summary together with the rows it was built from.
type summaryReport struct {
	Summary      txreport.Summary
	Breakdown    txreport.Breakdown
	Transactions []txreport.Transaction
	GeneratedAt  time.Time
}

func (r *summaryReport) fileName(format string) string {
	return fmt.Sprintf("ringkasan-transaksi-%s.%s", r.GeneratedAt.Format("20060102-1504"), format)
}

func (r *summaryReport) export(format string) ([]byte, string, error) {
	contentType, ok := exportContentTypes[format]
	if !ok {
		return nil, "", fmt.Errorf("unsupported export format %q", format)
	}
	var (
		content []byte
		err     error
	)
	switch format {
	case exportFormatPDF:
		content, err = buildSummaryPDF(r)
	case exportFormatXLSX:
		content, err = buildSummaryXLSX(r)
	case exportFormatCSV:
		content, err = buildTransactionsCSV(r.Transactions)
	}
	if err != nil {
		return nil, "", err
	}
	return content, contentType, nil
}

func summaryRows(s txreport.Summary) [][2]string {
	return [][2]string{
		{"Total transaksi", strconv.Itoa(s.TotalTransactions)},
		{"Total pendapatan", txreport.FormatRupiah(s.TotalRevenue)},
		{"Kendaraan terfavorit", s.MostFrequentVehicle},
		{"Bulan tersibuk", s.BusiestMonth},
		{"Destinasi terfavorit", s.MostFrequentDestination},
		{"Tanggal tidak terbaca", strconv.Itoa(s.SkippedDates)},
	}
}

func topLabels(t *txreport.Tally) []txreport.LabelCount {
	if t == nil {
		return nil
	}
	ranked := t.Ranked()
	if len(ranked) > breakdownTopLimit {
		ranked = ranked[:breakdownTopLimit]
	}
	return ranked
}

func buildSummaryPDF(r *summaryReport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, "Ringkasan Transaksi Gemitra")

	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Dibuat: %s", r.GeneratedAt.Format("02-01-2006 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range summaryRows(r.Summary) {
		pdf.CellFormat(60, 8, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}

	sections := []struct {
		title string
		tally *txreport.Tally
	}{
		{"Kendaraan", r.Breakdown.Vehicles},
		{"Bulan", r.Breakdown.Months},
		{"Destinasi", r.Breakdown.Destinations},
	}
	for _, section := range sections {
		ranked := topLabels(section.tally)
		if len(ranked) == 0 {
			continue
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, section.title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, entry := range ranked {
			pdf.Cell(0, 6, tr(fmt.Sprintf("- %s: %d", entry.Label, entry.Count)))
			pdf.Ln(6)
		}
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func buildSummaryXLSX(r *summaryReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheetName); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	row := 1
	for _, entry := range summaryRows(r.Summary) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(summarySheetName, cell, &[]any{entry[0], entry[1]}); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(summarySheetName, cell, cell, bold); err != nil {
			return nil, err
		}
		row++
	}

	if _, err := f.NewSheet(transactionSheetName); err != nil {
		return nil, err
	}
	header := make([]any, len(transactionColumns))
	for i, column := range transactionColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(transactionSheetName, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(transactionSheetName, "A1", "L1", bold); err != nil {
		return nil, err
	}
	for i, tx := range r.Transactions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := transactionRecord(tx)
		rowValues := make([]any, len(values))
		for j, v := range values {
			rowValues[j] = v
		}
		// penumpang and total are written as numbers.
		rowValues[3] = int(tx.Passengers)
		total, _ := tx.Total.Float64()
		rowValues[7] = total
		if err := f.SetSheetRow(transactionSheetName, cell, &rowValues); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func buildTransactionsCSV(transactions []txreport.Transaction) ([]byte, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)
	if err := writer.Write(transactionColumns); err != nil {
		return nil, err
	}
	for _, tx := range transactions {
		if err := writer.Write(transactionRecord(tx)); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func transactionRecord(tx txreport.Transaction) []string {
	return []string{
		strings.TrimSpace(tx.ID.String()),
		tx.Name.String(),
		tx.Destinations.String(),
		strconv.Itoa(int(tx.Passengers)),
		tx.DepartureDate.String(),
		tx.DepartureTime.String(),
		tx.Vehicle.String(),
		tx.Total.String(),
		tx.Status.String(),
		tx.Code.String(),
		tx.TransactionTime.String(),
		tx.TransactionDate.String(),
	}
}
