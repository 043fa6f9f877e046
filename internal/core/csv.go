package core

import (
	"io"
	"strings"
)

// CSVHeader is the first row of the export.
var CSVHeader = []string{
	"Mes", "Internet", "Expensa", "Agua", "Gas", "Luz", "Tarjeta", "Auto", "Cochera",
	"Ingreso Catastro", "Ingreso Admin",
	"Total Depto", "Total Otros", "Total Ingresos", "Gastos Totales", "Balance",
}

// Row returns the fifteen amount columns that follow the month key: the ten
// line items, then the five totals.
func (m Month) Row() []Money {
	t := m.Totals()
	return []Money{
		m.Internet, m.Expensa, m.Agua, m.Gas, m.Luz,
		m.Tarjeta, m.Auto, m.Cochera,
		m.Catastro, m.Admin,
		t.Depto, t.Otros, t.Ingresos, t.Gastos, t.Balance,
	}
}

// WriteCSV writes months in ascending key order. Text cells are always
// quoted, amounts never are, and rows are separated by a bare newline with
// none after the last row.
func WriteCSV(w io.Writer, months map[MonthKey]Month) error {
	var b strings.Builder
	writeTextRow(&b, CSVHeader)
	for _, e := range SortedMonths(months) {
		b.WriteByte('\n')
		b.WriteString(quote(string(e.Key)))
		for _, v := range e.Month.Row() {
			b.WriteByte(',')
			b.WriteString(v.String())
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTextRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quote(c))
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
