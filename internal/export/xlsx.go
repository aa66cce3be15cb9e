package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"relatorios/internal/models"
)

const ordersSheet = "Pedidos"

var xlsxHeader = []interface{}{"Cliente", "Data", "Hora", "Entrega"}

// OrdersXLSX writes orders to a single-sheet workbook with the same columns
// as OrdersPDF. Dates are kept as text in DD/MM/YYYY.
func OrdersXLSX(orders []*models.Order) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return nil, fmt.Errorf("export: name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &xlsxHeader); err != nil {
		return nil, fmt.Errorf("export: header row: %w", err)
	}
	if err := f.SetCellStyle(ordersSheet, "A1", "D1", bold); err != nil {
		return nil, fmt.Errorf("export: header style: %w", err)
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{o.Cliente, brDate(o.DataEntregaISO), o.HoraEntrega, o.Entrega.Tipo}
		if err := f.SetSheetRow(ordersSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("export: row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(ordersSheet, "A", "A", 40); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(ordersSheet, "B", "D", 14); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("export: write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
