package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/grudgematch/internal/adapters/repository"
	"github.com/okian/grudgematch/internal/domain/model"
	"github.com/okian/grudgematch/internal/domain/naming"
	"github.com/okian/grudgematch/pkg/logger"
)

// RecordsHeader is the first line of a records file.
var RecordsHeader = []string{"date", "game", "p1", "p2", "win"}

// ImportReport describes a records import.
type ImportReport struct {
	// Rows is the number of data rows read, including a failing one.
	Rows int `json:"rows"`
	// Appended is the number of matches written to the ledger.
	Appended int `json:"appended"`
	// Created lists players and games added for unknown names.
	Created []model.Entity `json:"created"`
}

// ExportRecords writes the ledger as CSV in ledger order and returns the
// number of rows written.
func (s *Service) ExportRecords(ctx context.Context, w io.Writer) (int, error) {
	unlock, err := s.lock()
	if err != nil {
		return 0, err
	}
	defer unlock()

	records, err := s.ledger.ReadAll(ctx)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(RecordsHeader); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.Date.Format(model.DateLayout),
			rec.Game.Name,
			rec.PlayerOne.Name,
			rec.PlayerTwo.Name,
			rec.Winner().Name,
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("write match %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flush records: %w", err)
	}
	return len(records), nil
}

// ImportRecords appends every row of a records file to the ledger. Unknown
// players and games are added first and must pass name validation. The
// import stops at the first failing row; rows before it stay appended.
func (s *Service) ImportRecords(ctx context.Context, r io.Reader) (ImportReport, error) {
	unlock, err := s.lock()
	if err != nil {
		return ImportReport{}, err
	}
	defer unlock()

	var report ImportReport
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(RecordsHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return report, fmt.Errorf("%w: header: %w", ErrImport, err)
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(h), RecordsHeader[i]) {
			return report, fmt.Errorf("%w: header %v, want %v", ErrImport, header, RecordsHeader)
		}
	}

	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.Rows++
		if err != nil {
			return report, fmt.Errorf("%w: row %d: %w", ErrImport, report.Rows, err)
		}
		if err := s.importRow(ctx, fields, &report); err != nil {
			return report, fmt.Errorf("%w: row %d: %w", ErrImport, report.Rows, err)
		}
		report.Appended++
	}

	s.logger.Info(ctx, "records imported",
		logger.Int("rows", report.Rows),
		logger.Int("created", len(report.Created)),
	)
	return report, nil
}

func (s *Service) importRow(ctx context.Context, fields []string, report *ImportReport) error {
	date, err := model.ParseDate(fields[0])
	if err != nil {
		return err
	}
	in := model.MatchInput{
		Date:      date,
		Game:      fields[1],
		PlayerOne: fields[2],
		PlayerTwo: fields[3],
		Winner:    fields[4],
	}

	// The ledger checks the winner and players before references, so a
	// malformed row is rejected before any entity is created for it.
	_, err = s.ledger.Append(ctx, in)
	if !errors.Is(err, repository.ErrUnknownReference) {
		return err
	}

	refs := []struct {
		kind model.Kind
		name string
	}{
		{model.KindGame, in.Game},
		{model.KindPlayer, in.PlayerOne},
		{model.KindPlayer, in.PlayerTwo},
	}
	// Every unknown name must validate before any of them is added.
	unknown := refs[:0]
	for _, ref := range refs {
		if _, ok := s.entities.Lookup(ref.kind, ref.name); ok {
			continue
		}
		if code := s.entities.Validate(ref.kind, ref.name); code != naming.Valid {
			return naming.NewValidationError(ref.kind, ref.name, code)
		}
		unknown = append(unknown, ref)
	}
	for _, ref := range unknown {
		e, err := s.entities.Add(ctx, ref.kind, ref.name)
		if err != nil {
			return err
		}
		report.Created = append(report.Created, e)
	}
	_, err = s.ledger.Append(ctx, in)
	return err
}
