package core

// Totals is the derived summary of one month.
type Totals struct {
	Depto    Money `json:"totalDepto"`
	Otros    Money `json:"totalOtros"`
	Ingresos Money `json:"totalIngresos"`
	Gastos   Money `json:"gastosTotales"`
	Balance  Money `json:"balance"`
}

// Totals groups the apartment costs (expensa, agua, gas, luz) apart from the
// other expenses, then nets them against income.
func (m Month) Totals() Totals {
	depto := m.Expensa.Cents + m.Agua.Cents + m.Gas.Cents + m.Luz.Cents
	otros := m.Internet.Cents + m.Tarjeta.Cents + m.Auto.Cents + m.Cochera.Cents
	ingresos := m.Catastro.Cents + m.Admin.Cents
	gastos := depto + otros
	return Totals{
		Depto:    Money{depto},
		Otros:    Money{otros},
		Ingresos: Money{ingresos},
		Gastos:   Money{gastos},
		Balance:  Money{ingresos - gastos},
	}
}
