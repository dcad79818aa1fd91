package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"listings-cms/internal/logger"
	"listings-cms/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// Sheet is one worksheet of the export workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// SheetSource loads the rows of one sheet.
type SheetSource interface {
	Sheet(ctx context.Context) (*Sheet, error)
}

type SheetSourceFunc func(ctx context.Context) (*Sheet, error)

func (f SheetSourceFunc) Sheet(ctx context.Context) (*Sheet, error) { return f(ctx) }

// ListingSheet reads every document of a listing service straight from the store.
func ListingSheet[T any](name string, svc *ListingService[T], headers []string, row func(T) []any) SheetSource {
	return SheetSourceFunc(func(ctx context.Context) (*Sheet, error) {
		docs, err := svc.All(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([][]any, 0, len(docs))
		for _, d := range docs {
			rows = append(rows, row(d))
		}
		return &Sheet{Name: name, Headers: headers, Rows: rows}, nil
	})
}

// ExportService builds the admin .xlsx workbook, one sheet per source.
type ExportService struct {
	sources []SheetSource
}

func NewExportService(sources ...SheetSource) *ExportService {
	return &ExportService{sources: sources}
}

// ExportWorkbook renders all sheets and returns the encoded workbook.
func (es *ExportService) ExportWorkbook(ctx context.Context) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("failed to close workbook", "error", err)
		}
	}()

	first := true
	for _, src := range es.sources {
		sheet, err := src.Sheet(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load sheet: %w", err)
		}

		if first {
			// Rename the default sheet so the workbook has no empty tab.
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}

		if err := writeSheet(f, sheet); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet *Sheet) error {
	headers := make([]any, len(sheet.Headers))
	for i, h := range sheet.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2) // Data starts after the header row
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

var (
	profileHeaders      = []string{"ID", "Heading", "Description", "Location", "Contact Number", "Images", "Created At", "Updated At"}
	serviceHeaders      = []string{"ID", "Name", "Service", "Duration", "Price", "Created At", "Updated At"}
	extraServiceHeaders = []string{"ID", "Name", "Rate", "Contact", "Category", "Created At", "Updated At"}
	finalHeaders        = []string{"ID", "Name", "Rate", "WhatsApp", "Created At", "Updated At"}
)

func profileRow(d models.Document, p models.ProfileFields) []any {
	return []any{d.ID.Hex(), p.Heading, p.Description, p.Location, p.ContactNumber,
		strings.Join(p.Images, "\n"), stamp(d.CreatedAt), stamp(d.UpdatedAt)}
}

func ProfilesSheet(svc *ListingService[models.Profile]) SheetSource {
	return ListingSheet("Profiles", svc, profileHeaders, func(p models.Profile) []any {
		return profileRow(p.Document, p.ProfileFields)
	})
}

func HighProfilesSheet(svc *ListingService[models.HighProfileCallGirl]) SheetSource {
	return ListingSheet("High Profile", svc, profileHeaders, func(p models.HighProfileCallGirl) []any {
		return profileRow(p.Document, p.ProfileFields)
	})
}

func ServicesSheet(svc *ListingService[models.Service]) SheetSource {
	return ListingSheet("Services", svc, serviceHeaders, func(s models.Service) []any {
		return []any{s.ID.Hex(), s.Name, s.Service, s.Duration, s.Price, stamp(s.CreatedAt), stamp(s.UpdatedAt)}
	})
}

func ExtraServicesSheet(svc *ListingService[models.ExtraService]) SheetSource {
	return ListingSheet("Extra Services", svc, extraServiceHeaders, func(s models.ExtraService) []any {
		return []any{s.ID.Hex(), s.Name, s.Rate, s.Contact, s.Category, stamp(s.CreatedAt), stamp(s.UpdatedAt)}
	})
}

func FinalCallGirlsSheet(svc *ListingService[models.FinalCallGirl]) SheetSource {
	return ListingSheet("Final Call Girls", svc, finalHeaders, func(s models.FinalCallGirl) []any {
		return []any{s.ID.Hex(), s.Name, s.Rate, s.WhatsApp, stamp(s.CreatedAt), stamp(s.UpdatedAt)}
	})
}
