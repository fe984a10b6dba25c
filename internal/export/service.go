// Package export renders stored batches as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
)

const (
	incidentSheet = "Incidents"
	logSheet      = "Command Logs"
)

type BatchReader interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]entity.Record, error)
}

// Service produces XLSX bytes for a batch.
type Service struct {
	reader BatchReader
	logger *slog.Logger
}

func NewService(reader BatchReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, logger: logger}
}

// ExportBatchXLSX returns a workbook with one row per incident and, when the
// batch has any, a second sheet listing command-log entries.
func (s *Service) ExportBatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error) {
	start := time.Now()

	batch, err := s.reader.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	recs, err := s.reader.ListRecords(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet rather than leaving an empty Sheet1 behind.
	if err := f.SetSheetName("Sheet1", incidentSheet); err != nil {
		return nil, err
	}
	headers := []string{"#", "Date", "Time", "CFS Number", "Type", "Location", "Details", "Officer", "County"}
	if err := writeHeader(f, incidentSheet, headers); err != nil {
		return nil, err
	}

	logRows := 0
	for i, r := range recs {
		row := i + 2
		vals := []any{
			r.Seq + 1,
			r.Date,
			entity.StringValue(r.Time),
			entity.StringValue(r.CaseNumber),
			r.IncidentType,
			r.Location,
			r.Details,
			entity.StringValue(r.Officer),
			r.County,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(incidentSheet, cell, &vals); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		logRows += len(r.CommandLogs)
	}

	_ = f.SetColWidth(incidentSheet, "A", "A", 5)
	_ = f.SetColWidth(incidentSheet, "B", "C", 11)
	_ = f.SetColWidth(incidentSheet, "D", "D", 16)
	_ = f.SetColWidth(incidentSheet, "E", "E", 22)
	_ = f.SetColWidth(incidentSheet, "F", "F", 32)
	_ = f.SetColWidth(incidentSheet, "G", "G", 80)
	_ = f.SetColWidth(incidentSheet, "H", "I", 18)
	_ = f.SetPanes(incidentSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if logRows > 0 {
		if _, err := f.NewSheet(logSheet); err != nil {
			return nil, err
		}
		if err := writeHeader(f, logSheet, []string{"CFS Number", "Timestamp", "Officer", "Entry"}); err != nil {
			return nil, err
		}
		row := 2
		for _, r := range recs {
			for _, l := range r.CommandLogs {
				vals := []any{entity.StringValue(r.CaseNumber), l.Timestamp, l.Officer, l.Entry}
				cell, _ := excelize.CoordinatesToCellName(1, row)
				if err := f.SetSheetRow(logSheet, cell, &vals); err != nil {
					return nil, fmt.Errorf("write log row %d: %w", row, err)
				}
				row++
			}
		}
		_ = f.SetColWidth(logSheet, "A", "C", 18)
		_ = f.SetColWidth(logSheet, "D", "D", 90)
	}

	props := &excelize.DocProperties{
		Title:   batch.Filename,
		Subject: batch.County + " blotter",
		Creator: "blotter-tracker",
	}
	_ = f.SetDocProps(props)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"batch_id", batchID.String(),
		"rows", len(recs),
		"log_rows", logRows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}
