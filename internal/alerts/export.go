package alerts

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const (
	alertSheet    = "Alerts"
	exportVersion = "1.0"
)

var alertHeaders = []string{
	"ID", "User", "Type", "Status", "Description", "Medical Condition",
	"Latitude", "Longitude", "Address", "Service Provider", "Recommended Hospitals",
	"Created At", "Updated At",
}

var alertColumnWidths = []float64{38, 16, 22, 14, 40, 28, 12, 12, 30, 20, 40, 22, 22}

// AlertExport is the JSON export document.
type AlertExport struct {
	Version    string                   `json:"version"`
	ExportedAt time.Time                `json:"exported_at"`
	Count      int                      `json:"count"`
	Alerts     []*domain.EmergencyAlert `json:"alerts"`
}

// JSONExporter writes alerts as an indented JSON document.
type JSONExporter struct {
	now func() time.Time
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{now: time.Now}
}

// Export implements domain.AlertExporter.
func (e *JSONExporter) Export(w io.Writer, alerts []*domain.EmergencyAlert) error {
	if alerts == nil {
		alerts = []*domain.EmergencyAlert{}
	}
	export := &AlertExport{
		Version:    exportVersion,
		ExportedAt: e.now().UTC(),
		Count:      len(alerts),
		Alerts:     alerts,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// XLSXExporter writes alerts as a single-sheet spreadsheet.
type XLSXExporter struct{}

// NewXLSXExporter creates a spreadsheet exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Export implements domain.AlertExporter.
func (e *XLSXExporter) Export(w io.Writer, alerts []*domain.EmergencyAlert) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(alertSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FDE9E7"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range alertHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(alertSheet, cell, header); err != nil {
			return fmt.Errorf("failed to write header %s: %w", header, err)
		}
		if err := f.SetCellStyle(alertSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header %s: %w", header, err)
		}
	}

	for i, width := range alertColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(alertSheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, alert := range alerts {
		row := i + 2
		for col, value := range alertRow(alert) {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(alertSheet, cell, value); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	if err := f.SetPanes(alertSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func alertRow(a *domain.EmergencyAlert) []interface{} {
	var lat, lng interface{} = "", ""
	address := ""
	if a.Location != nil {
		lat, lng, address = a.Location.Lat, a.Location.Lng, a.Location.Address
	}

	hospitals := make([]string, 0, len(a.RecommendedHospitals))
	for _, h := range a.RecommendedHospitals {
		hospitals = append(hospitals, fmt.Sprintf("%s (%.0f)", h.HospitalID, h.Score))
	}

	return []interface{}{
		a.ID, a.UserID, string(a.AlertType), string(a.Status), a.Description, a.MedicalCondition,
		lat, lng, address, a.ServiceProvider, strings.Join(hospitals, ", "),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// DefaultExporters returns the exporters keyed by format name.
func DefaultExporters() map[string]domain.AlertExporter {
	return map[string]domain.AlertExporter{
		"json": NewJSONExporter(),
		"xlsx": NewXLSXExporter(),
	}
}
