package report

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"injuryguard-client/internal/models"
)

// 报警明细表头
var alertSheetHeader = []string{
	"Time",
	"Level",
	"Risk %",
	"Message",
	"Injury Type",
	"Recommended Action",
}

// WriteSessionReport 把会话摘要和报警日志写成 Excel 报告，返回文件路径
// 报告是一次性的展示产物，会话内存状态仍按规则丢弃
func WriteSessionReport(dir, sessionID string, summary *models.SessionSummary, records []models.AlertRecord) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	summaryRows := [][]interface{}{
		{"Session", sessionID},
		{"Duration", summary.DurationLabel},
		{"Average Score", summary.AverageScore},
		{"Peak Risk", summary.PeakRisk},
		{"Alert Count", summary.AlertCount},
		{"Dominant Incident", summary.DominantIncident},
		{"Suggestion", summary.Suggestion},
		{"Rank", summary.Rank},
	}
	for i, row := range summaryRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	alertSheet := "Alerts"
	if _, err := f.NewSheet(alertSheet); err != nil {
		return "", fmt.Errorf("failed to create alerts sheet: %w", err)
	}
	header := make([]interface{}, len(alertSheetHeader))
	for i, h := range alertSheetHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(alertSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("failed to write alerts header: %w", err)
	}
	for i, rec := range records {
		row := []interface{}{
			rec.TimeLabel,
			rec.Level,
			rec.Risk,
			rec.Message,
			rec.InjuryType,
			rec.Action,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(alertSheet, cell, &row); err != nil {
			return "", fmt.Errorf("failed to write alert row: %w", err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("session-%s.xlsx", sessionID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}
