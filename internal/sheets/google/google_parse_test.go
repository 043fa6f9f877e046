package google

import (
	"testing"

	"gastos/internal/core"
)

func TestHeader(t *testing.T) {
	h := header()
	if len(h) != 17 {
		t.Fatalf("header has %d columns, want 17 (A..Q)", len(h))
	}
	if h[0] != "Usuario" || h[1] != "Mes" || h[16] != "Balance" {
		t.Fatalf("unexpected header: %v", h)
	}
}

func TestRowValues(t *testing.T) {
	m := core.Month{
		Internet: core.Money{Cents: 150000},
		Luz:      core.Money{Cents: 1250},
		Admin:    core.Money{Cents: 7},
	}
	got := rowValues(4, "2025-03", m)
	if len(got) != 17 {
		t.Fatalf("row has %d cells, want 17", len(got))
	}
	if got[0] != int64(4) || got[1] != "2025-03" {
		t.Fatalf("unexpected key cells: %v", got[:2])
	}
	if got[2] != 1500.0 || got[6] != 12.5 || got[11] != 0.07 {
		t.Fatalf("unexpected amounts: %v", got)
	}
	if got[16] != -1512.43 {
		t.Fatalf("unexpected balance: %v", got[16])
	}
}

func TestFindMonthRow(t *testing.T) {
	values := [][]interface{}{
		{"Usuario", "Mes"},
		{float64(1), "2025-01"},
		{},
		{float64(2), "2025-01"},
		{"1", "2025-02"},
	}
	cases := []struct {
		uid  int64
		key  core.MonthKey
		want int
	}{
		{1, "2025-01", 2},
		{2, "2025-01", 4},
		{1, "2025-02", 5},
		{3, "2025-01", 0},
		{1, "Mes", 0},
	}
	for _, tc := range cases {
		if got := findMonthRow(values, tc.uid, tc.key); got != tc.want {
			t.Errorf("findMonthRow(%d, %s) = %d, want %d", tc.uid, tc.key, got, tc.want)
		}
	}
	if got := findMonthRow([][]interface{}{{"1", "2025-01"}}, 1, "2025-01"); got != 0 {
		t.Fatalf("header row must not match, got %d", got)
	}
}

func TestParseMonthRows(t *testing.T) {
	values := [][]interface{}{
		toInterfaces(header()),
		{float64(1), "2025-01", 1500.0, 0.0, 0.0, 0.0, 12.5, 0.0, 0.0, 0.0, 0.0, 1000000.0},
		{float64(2), "2025-01", 99.0},
		{},
		{float64(1), "2025-02"},
	}
	got, err := parseMonthRows(values, 1)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d months, want 2", len(got))
	}
	jan := got["2025-01"]
	if jan.Internet.Cents != 150000 || jan.Luz.Cents != 1250 || jan.Admin.Cents != 100000000 {
		t.Fatalf("unexpected january: %+v", jan)
	}
	if got["2025-02"] != (core.Month{}) {
		t.Fatalf("expected empty february, got %+v", got["2025-02"])
	}

	if _, err := parseMonthRows([][]interface{}{{}, {float64(1), "enero"}}, 1); err == nil {
		t.Fatal("expected error for malformed month key")
	}
}
