package google

import (
	"fmt"
	"strconv"
	"strings"

	"gastos/internal/core"
)

// Column Q holds the last of the fifteen amount columns.
const lastColumn = "Q"

func header() []string {
	return append([]string{"Usuario"}, core.CSVHeader...)
}

// rowValues lays a month out as Usuario, Mes, then the amount columns in
// export order. Amounts are written as numbers in currency units.
func rowValues(uid int64, key core.MonthKey, m core.Month) []interface{} {
	out := []interface{}{uid, string(key)}
	for _, v := range m.Row() {
		f, _ := strconv.ParseFloat(v.String(), 64)
		out = append(out, f)
	}
	return out
}

// findMonthRow returns the 1-based sheet row holding uid and key, or 0.
// Row 1 is the header and is never matched.
func findMonthRow(values [][]interface{}, uid int64, key core.MonthKey) int {
	want := strconv.FormatInt(uid, 10)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if safeGet(row, 0) == want && safeGet(row, 1) == string(key) {
			return i + 1
		}
	}
	return 0
}

// parseMonthRows collects uid's months from an A:Q matrix. Blank (cleared)
// rows and rows of other users are skipped.
func parseMonthRows(values [][]interface{}, uid int64) (map[core.MonthKey]core.Month, error) {
	out := map[core.MonthKey]core.Month{}
	want := strconv.FormatInt(uid, 10)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if safeGet(row, 0) != want {
			continue
		}
		key, err := core.ParseMonthKey(safeGet(row, 1))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		var cents [10]int64
		for j := range cents {
			c, err := core.ParseAmount(safeGet(row, j+2))
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+3, err)
			}
			cents[j] = c
		}
		out[key] = core.Month{
			Internet: core.Money{Cents: cents[0]},
			Expensa:  core.Money{Cents: cents[1]},
			Agua:     core.Money{Cents: cents[2]},
			Gas:      core.Money{Cents: cents[3]},
			Luz:      core.Money{Cents: cents[4]},
			Tarjeta:  core.Money{Cents: cents[5]},
			Auto:     core.Money{Cents: cents[6]},
			Cochera:  core.Money{Cents: cents[7]},
			Catastro: core.Money{Cents: cents[8]},
			Admin:    core.Money{Cents: cents[9]},
		}
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
