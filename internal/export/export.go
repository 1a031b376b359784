package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reserveit/internal/database"
	"reserveit/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Reservations"

// Exporter пишет отчёт по броням в Excel для менеджеров.
type Exporter struct {
	db     *database.DB
	path   string
	logger *zerolog.Logger
}

func NewExporter(db *database.DB, path string, logger *zerolog.Logger) *Exporter {
	return &Exporter{db: db, path: path, logger: logger}
}

// Dir возвращает каталог, в который пишутся отчёты.
func (e *Exporter) Dir() string {
	return e.path
}

// ReservationsReport создает файл с бронями за период [from, to] и
// возвращает путь к нему.
func (e *Exporter) ReservationsReport(ctx context.Context, from, to time.Time) (string, error) {
	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	details, err := e.db.GetReservationDetails(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting reservations: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		from.Format("02.01.2006"), to.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "G1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{"ID", "Restaurant", "Table", "Date", "Guests", "Client", "Status"}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	row := 3
	for _, d := range details {
		if d.DayTime.Before(from) || d.DayTime.After(to) {
			continue
		}
		e.writeRow(f, row, d)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "G", 20)
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("reservations_%s_to_%s.xlsx",
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	fullPath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(fullPath); err != nil {
		return "", fmt.Errorf("error saving export file: %w", err)
	}

	e.logger.Info().Str("path", fullPath).Int("rows", row-3).Msg("reservations report exported")
	return fullPath, nil
}

func (e *Exporter) writeRow(f *excelize.File, row int, d *models.ReservationDetails) {
	restaurant := ""
	if d.RestaurantName.Valid {
		restaurant = d.RestaurantName.String
	}
	table := ""
	if d.TableNumber.Valid {
		table = fmt.Sprintf("%d", d.TableNumber.Int64)
	}

	values := []any{
		d.ID,
		restaurant,
		table,
		d.DayTime.Format("02.01.2006 15:04"),
		d.Guests,
		d.ClientEmail,
		string(d.Status),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheetName, cell, v)
	}
}
