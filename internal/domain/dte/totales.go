// Package dte contiene el núcleo de dominio de los Documentos Tributarios
// Electrónicos: el cálculo de totales y la máquina de estados del ciclo de
// vida. Ambos son puros y deterministas; la persistencia y el envío al SII
// viven en capas externas.
package dte

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// TasaIVA tasa de IVA vigente en Chile (19%).
var TasaIVA = decimal.NewFromFloat(0.19)

var cien = decimal.NewFromInt(100)

// Totales agrupa los montos agregados de un documento. Siempre son derivados
// de las líneas de detalle; nunca se mutan de forma independiente.
type Totales struct {
	Neto   decimal.Decimal // suma de líneas afectas, redondeada al peso
	Exento decimal.Decimal // suma de líneas exentas, redondeada al peso
	IVA    decimal.Decimal // round(neto × 0.19), medio peso se aleja de cero
	Total  decimal.Decimal // neto + IVA + exento
}

// CalcularTotales calcula los totales del documento a partir de sus líneas.
// Función pura y determinista: permutar las líneas produce el mismo resultado.
//
// Cada línea conserva precisión completa (decimal) y el redondeo al peso se
// aplica una sola vez a nivel de agregado, nunca por línea, para no acumular
// error de redondeo. Una lista vacía produce totales en cero; la regla de
// "al menos un ítem" pertenece al contrato de creación del documento.
func CalcularTotales(items []entity.DetalleDocumento) (Totales, error) {
	var neto, exento decimal.Decimal

	for i, item := range items {
		if err := validarItem(i, item); err != nil {
			return Totales{}, err
		}
		subtotal := subtotalLinea(item)
		if item.Exento {
			exento = exento.Add(subtotal)
		} else {
			neto = neto.Add(subtotal)
		}
	}

	// Redondeo al peso solo aquí (mitad se aleja de cero).
	neto = neto.Round(0)
	exento = exento.Round(0)
	iva := neto.Mul(TasaIVA).Round(0)
	total := neto.Add(iva).Add(exento)

	return Totales{Neto: neto, Exento: exento, IVA: iva, Total: total}, nil
}

// SubtotalLinea = cantidad × precio unitario × (1 − descuento/100), sin
// redondear. El redondeo al peso ocurre solo en los agregados.
func SubtotalLinea(cantidad, precioUnitario, descuento decimal.Decimal) decimal.Decimal {
	bruto := cantidad.Mul(precioUnitario)
	if descuento.IsZero() {
		return bruto
	}
	factor := decimal.NewFromInt(1).Sub(descuento.Div(cien))
	return bruto.Mul(factor)
}

func subtotalLinea(item entity.DetalleDocumento) decimal.Decimal {
	return SubtotalLinea(item.Cantidad, item.PrecioUnitario, item.Descuento)
}

func validarItem(i int, item entity.DetalleDocumento) error {
	if strings.TrimSpace(item.Descripcion) == "" {
		return &domain.ItemInvalidoError{Indice: i, Campo: "descripcion", Motivo: "la descripción es requerida"}
	}
	if !item.Cantidad.IsPositive() {
		return &domain.ItemInvalidoError{Indice: i, Campo: "cantidad", Motivo: "la cantidad debe ser mayor a 0"}
	}
	if item.PrecioUnitario.IsNegative() {
		return &domain.ItemInvalidoError{Indice: i, Campo: "precio_unitario", Motivo: "el precio no puede ser negativo"}
	}
	if item.Descuento.IsNegative() || item.Descuento.GreaterThan(cien) {
		return &domain.ItemInvalidoError{Indice: i, Campo: "descuento", Motivo: "el descuento debe estar entre 0 y 100"}
	}
	for _, imp := range item.Adicionales {
		if strings.TrimSpace(imp.Codigo) == "" {
			return &domain.ItemInvalidoError{Indice: i, Campo: "adicionales", Motivo: "impuesto adicional sin código"}
		}
		if imp.Tasa.IsNegative() {
			return &domain.ItemInvalidoError{Indice: i, Campo: "adicionales", Motivo: "impuesto adicional con tasa negativa"}
		}
	}
	return nil
}
