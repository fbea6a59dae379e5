package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/menootpass/admin-gemitra/libs/txreport"
)

type breakdownView struct {
	Vehicles     []txreport.LabelCount `json:"vehicles"`
	Months       []txreport.LabelCount `json:"months"`
	Destinations []txreport.LabelCount `json:"destinations"`
}

func (a *App) registerReportRoutes(group *gin.RouterGroup) {
	group.GET("/reports/summary", a.reportSummaryHandler)
	group.GET("/reports/summary/export", a.reportSummaryExportHandler)
	group.POST("/reports/summary/email", a.requireRole("admin"), a.reportSummaryEmailHandler)
	group.GET("/reports/deliveries", a.reportDeliveriesHandler)
}

func (a *App) buildSummaryReport(ctx context.Context) (*summaryReport, error) {
	transactions, err := a.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	summary, breakdown := txreport.SummarizeWithBreakdown(transactions, txreport.WithLocation(a.reportLocation))
	if summary.SkippedDates > 0 {
		a.log.Warn("transactions with unreadable dates left out of month tally", "count", summary.SkippedDates)
	}

	now := time.Now()
	if a.reportLocation != nil {
		now = now.In(a.reportLocation)
	}
	return &summaryReport{
		Summary:      summary,
		Breakdown:    breakdown,
		Transactions: transactions,
		GeneratedAt:  now,
	}, nil
}

func (a *App) reportSummaryHandler(c *gin.Context) {
	report, err := a.buildSummaryReport(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":                  report.Summary,
		"total_revenue_display": txreport.FormatRupiah(report.Summary.TotalRevenue),
		"skipped_dates":         report.Summary.SkippedDates,
		"generated_at":          report.GeneratedAt.Format(time.RFC3339),
		"breakdown": breakdownView{
			Vehicles:     topLabels(report.Breakdown.Vehicles),
			Months:       topLabels(report.Breakdown.Months),
			Destinations: topLabels(report.Breakdown.Destinations),
		},
	})
}

func (a *App) reportSummaryExportHandler(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", exportFormatPDF)))
	if _, ok := exportContentTypes[format]; !ok {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_format", Message: "format must be pdf, xlsx or csv"})
		return
	}

	report, err := a.buildSummaryReport(c.Request.Context())
	if err != nil {
		writeAPIError(c, err)
		return
	}
	content, contentType, err := report.export(format)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", report.fileName(format)))
	c.Data(http.StatusOK, contentType, content)
}

func (a *App) reportSummaryEmailHandler(c *gin.Context) {
	session, err := getAdminSession(c)
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "Admin session required"})
		return
	}
	delivery, err := a.sendSummaryReport(c.Request.Context(), session.Email)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": delivery})
}

func (a *App) reportDeliveriesHandler(c *gin.Context) {
	if a.listReportDeliveries == nil {
		c.JSON(http.StatusOK, gin.H{"data": []ReportDelivery{}})
		return
	}
	limit := parseDeliveryLimit(c.Query("limit"))
	deliveries, err := a.listReportDeliveries(c.Request.Context(), limit)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": deliveries})
}

func parseDeliveryLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 1 {
		return defaultDeliveryListLimit
	}
	if limit > adminMaxPerPage {
		return adminMaxPerPage
	}
	return limit
}
