package student

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Estudiantes"

var exportHeaders = []string{"ID", "Nombre", "Correo", "Carrera", "Semestre", "Estado"}

// Export writes students as an .xlsx spreadsheet to w.
func Export(w io.Writer, students []Student) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return errors.Wrap(err, "writing headers")
		}
	}
	for i, s := range students {
		values := []interface{}{s.ID, s.Nombre, s.Correo, s.Carrera, s.Semestre, s.Estado}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return errors.Wrap(err, "writing rows")
			}
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing spreadsheet")
	}
	return nil
}
