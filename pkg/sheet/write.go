package sheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hazyhaar/electoral-roll/pkg/voter"
	"github.com/xuri/excelize/v2"
)

// Header is the export column order. The labels are aliases known to the
// normalizer, so an exported file re-imports to the same voters.
var Header = []string{
	"Serial Number",
	"Name",
	"Voter ID",
	"Booth Number",
	"Polling Station Address",
	"Village",
	"Age",
	"Gender",
}

const exportSheet = "Voters"

// Row renders v in Header order.
func Row(v voter.Voter) []string {
	age := ""
	if v.Age != nil {
		age = strconv.Itoa(*v.Age)
	}
	return []string{
		v.SerialNumber,
		v.Name,
		v.VoterID,
		v.BoothNumber,
		v.PollingStationAddress,
		v.Village,
		age,
		v.Gender,
	}
}

// WriteCSV writes voters as CSV with a header row.
func WriteCSV(w io.Writer, voters []voter.Voter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range voters {
		if err := cw.Write(Row(v)); err != nil {
			return fmt.Errorf("write row %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes voters as a single-sheet workbook.
func WriteXLSX(w io.Writer, voters []voter.Voter) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	for i, v := range voters {
		if err := setRow(f, i+2, Row(v)); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(exportSheet, cell, &cells); err != nil {
		return fmt.Errorf("set row %d: %w", row, err)
	}
	return nil
}
