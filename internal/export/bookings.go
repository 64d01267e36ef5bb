package export

import (
	"fmt"
	"io"
	"time"

	"shareit/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Бронирования"
	summarySheet  = "Итого"

	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var bookingHeaders = []string{"ID", "Вещь", "Арендатор", "Email", "Начало", "Конец", "Статус"}

var statusColors = map[models.BookingStatus]string{
	models.StatusWaiting:  "#FFF2CC",
	models.StatusApproved: "#E2EFDA",
	models.StatusRejected: "#F8CBAD",
}

// FileName builds the download name of an owner report.
func FileName(ownerID int64, state models.BookingState, now time.Time) string {
	return fmt.Sprintf("bookings_%d_%s_%s.xlsx", ownerID, state, now.Format("2006-01-02"))
}

// WriteOwnerBookings renders the owner's bookings as an xlsx workbook with a
// per-status summary sheet.
func WriteOwnerBookings(w io.Writer, state models.BookingState, views []*models.BookingView, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, h := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, h)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(bookingHeaders))
	_ = f.SetCellStyle(bookingsSheet, "A1", lastCol+"1", headerStyle)

	statusStyles := make(map[models.BookingStatus]int, len(statusColors))
	for status, color := range statusColors {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		statusStyles[status] = style
	}

	counts := make(map[models.BookingStatus]int)
	for i, v := range views {
		row := i + 2
		values := []interface{}{
			v.ID,
			v.Item.Name,
			v.Booker.Name,
			v.Booker.Email,
			v.Start.Local().Format(models.DateTimeLayout),
			v.End.Local().Format(models.DateTimeLayout),
			string(v.Status),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(bookingsSheet, cell, value)
		}
		if style, ok := statusStyles[v.Status]; ok {
			cell, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(bookingsSheet, cell, cell, style)
		}
		counts[v.Status]++
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 8)
	_ = f.SetColWidth(bookingsSheet, "B", "D", 25)
	_ = f.SetColWidth(bookingsSheet, "E", "G", 20)
	_ = f.SetPanes(bookingsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	_ = f.SetCellValue(summarySheet, "A1", "Фильтр")
	_ = f.SetCellValue(summarySheet, "B1", string(state))
	_ = f.SetCellValue(summarySheet, "A2", "Сформирован")
	_ = f.SetCellValue(summarySheet, "B2", now.Local().Format(models.DateTimeLayout))
	row := 4
	for _, status := range []models.BookingStatus{models.StatusWaiting, models.StatusApproved, models.StatusRejected} {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(status))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), counts[status])
		row++
	}
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "TOTAL")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), len(views))
	_ = f.SetColWidth(summarySheet, "A", "A", 20)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}
