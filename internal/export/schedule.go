package export

import (
	"context"
	"fmt"
	"io"

	"amenityhub/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Schedule"

// ReservationLister is the read side the exporter pulls reservations from.
type ReservationLister interface {
	ListByResource(ctx context.Context, resourceID string, window models.Interval) ([]*models.Reservation, error)
}

// ScheduleExporter renders the reservations of one resource as an xlsx workbook.
type ScheduleExporter struct {
	reservations ReservationLister
}

func NewScheduleExporter(reservations ReservationLister) *ScheduleExporter {
	return &ScheduleExporter{reservations: reservations}
}

var headers = []string{"Date", "Start", "End", "Requester", "Status", "Reservation"}

// statusFill повторяет цвета статусов в выгрузке
var statusFill = map[models.Status]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCompleted: "#C6EFCE",
	models.StatusCancelled: "#FFC7CE",
	models.StatusExpired:   "#FFFFFF",
}

// Write lists the reservations of res overlapping window and writes the workbook to w.
func (e *ScheduleExporter) Write(ctx context.Context, w io.Writer, res *models.Resource, window models.Interval) (int, error) {
	list, err := e.reservations.ListByResource(ctx, res.ID, window)
	if err != nil {
		return 0, fmt.Errorf("list reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return 0, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("%s: %s - %s", resourceTitle(res),
		window.Start.Format("02.01.2006 15:04"), window.End.Format("02.01.2006 15:04"))
	_ = f.SetCellValue(sheetName, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	_ = f.SetCellStyle(sheetName, "A2", lastCol+"2", headerStyle)

	styles := make(map[models.Status]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top"},
		})
		if err != nil {
			return 0, fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = id
	}

	for i, r := range list {
		row := i + 3
		values := []interface{}{
			r.Interval.Start.Format("02.01.2006"),
			r.Interval.Start.Format("15:04"),
			r.Interval.End.Format("15:04"),
			r.RequesterID,
			string(r.Status),
			r.ID,
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, first, &values); err != nil {
			return 0, fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[r.Status]; ok {
			last, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.SetCellStyle(sheetName, first, last, style)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "E", 20)
	_ = f.SetColWidth(sheetName, "F", "F", 40)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("error writing workbook: %w", err)
	}
	return len(list), nil
}

func resourceTitle(res *models.Resource) string {
	if res.Name != "" {
		return res.Name
	}
	return res.ID
}
