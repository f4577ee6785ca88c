package dte_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/dte"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func item(desc string, cantidad, precio float64, descuento float64, exento bool) entity.DetalleDocumento {
	return entity.DetalleDocumento{
		Descripcion:    desc,
		Cantidad:       decimal.NewFromFloat(cantidad),
		PrecioUnitario: decimal.NewFromFloat(precio),
		Descuento:      decimal.NewFromFloat(descuento),
		Exento:         exento,
	}
}

func TestCalcularTotales_CasoBase(t *testing.T) {
	// 1 × 100.000, sin descuento → neto 100.000, IVA 19.000, total 119.000.
	totales, err := dte.CalcularTotales([]entity.DetalleDocumento{
		item("Servicio de desarrollo", 1, 100000, 0, false),
	})
	require.NoError(t, err)
	assert.True(t, totales.Neto.Equal(decimal.NewFromInt(100000)), "neto: %s", totales.Neto)
	assert.True(t, totales.IVA.Equal(decimal.NewFromInt(19000)), "iva: %s", totales.IVA)
	assert.True(t, totales.Exento.IsZero())
	assert.True(t, totales.Total.Equal(decimal.NewFromInt(119000)), "total: %s", totales.Total)
}

func TestCalcularTotales_DescuentoYExento(t *testing.T) {
	totales, err := dte.CalcularTotales([]entity.DetalleDocumento{
		item("Producto afecto", 2, 10000, 10, false), // 2×10.000 − 10% = 18.000
		item("Libro exento", 1, 5000, 0, true),       // exento 5.000
	})
	require.NoError(t, err)
	assert.True(t, totales.Neto.Equal(decimal.NewFromInt(18000)))
	assert.True(t, totales.Exento.Equal(decimal.NewFromInt(5000)))
	assert.True(t, totales.IVA.Equal(decimal.NewFromInt(3420))) // 18.000 × 0,19
	assert.True(t, totales.Total.Equal(decimal.NewFromInt(26420)))
}

// El redondeo se aplica una sola vez a nivel agregado: tres líneas de
// 3 × 333,33 suman 2.999,97 → neto 3.000, no 2.999 (3 × 999,99 truncado).
func TestCalcularTotales_RedondeoAgregadoNoPorLinea(t *testing.T) {
	items := []entity.DetalleDocumento{
		item("a", 3, 333.33, 0, false),
		item("b", 3, 333.33, 0, false),
		item("c", 3, 333.33, 0, false),
	}
	totales, err := dte.CalcularTotales(items)
	require.NoError(t, err)
	assert.True(t, totales.Neto.Equal(decimal.NewFromInt(3000)), "neto: %s", totales.Neto)
}

// Propiedad: permutar las líneas produce totales idénticos.
func TestCalcularTotales_IndependienteDelOrden(t *testing.T) {
	a := item("a", 3, 4990, 5, false)
	b := item("b", 1, 125000, 0, false)
	c := item("c", 2, 990, 0, true)

	t1, err := dte.CalcularTotales([]entity.DetalleDocumento{a, b, c})
	require.NoError(t, err)
	t2, err := dte.CalcularTotales([]entity.DetalleDocumento{c, a, b})
	require.NoError(t, err)

	assert.True(t, t1.Neto.Equal(t2.Neto))
	assert.True(t, t1.Exento.Equal(t2.Exento))
	assert.True(t, t1.IVA.Equal(t2.IVA))
	assert.True(t, t1.Total.Equal(t2.Total))
}

func TestCalcularTotales_ListaVaciaEsCero(t *testing.T) {
	totales, err := dte.CalcularTotales(nil)
	require.NoError(t, err)
	assert.True(t, totales.Neto.IsZero())
	assert.True(t, totales.IVA.IsZero())
	assert.True(t, totales.Exento.IsZero())
	assert.True(t, totales.Total.IsZero())
}

func TestCalcularTotales_ItemsInvalidos(t *testing.T) {
	casos := []struct {
		nombre string
		items  []entity.DetalleDocumento
		campo  string
	}{
		{"cantidad cero", []entity.DetalleDocumento{item("x", 0, 100, 0, false)}, "cantidad"},
		{"cantidad negativa", []entity.DetalleDocumento{item("x", -1, 100, 0, false)}, "cantidad"},
		{"precio negativo", []entity.DetalleDocumento{item("x", 1, -100, 0, false)}, "precio_unitario"},
		{"descuento mayor a 100", []entity.DetalleDocumento{item("x", 1, 100, 101, false)}, "descuento"},
		{"descuento negativo", []entity.DetalleDocumento{item("x", 1, 100, -1, false)}, "descuento"},
		{"descripción vacía", []entity.DetalleDocumento{item("  ", 1, 100, 0, false)}, "descripcion"},
	}
	for _, c := range casos {
		t.Run(c.nombre, func(t *testing.T) {
			_, err := dte.CalcularTotales(c.items)
			var itemErr *domain.ItemInvalidoError
			require.ErrorAs(t, err, &itemErr)
			assert.Equal(t, c.campo, itemErr.Campo)
			assert.Equal(t, 0, itemErr.Indice)
		})
	}
}

// El índice del error apunta a la línea ofensora, no a la primera.
func TestCalcularTotales_IndiceDelItemInvalido(t *testing.T) {
	_, err := dte.CalcularTotales([]entity.DetalleDocumento{
		item("ok", 1, 100, 0, false),
		item("mal", 0, 100, 0, false),
	})
	var itemErr *domain.ItemInvalidoError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, 1, itemErr.Indice)
}
