package entity

import "time"

// CAF representa un Código de Autorización de Folios emitido por el SII.
// Cada empresa puede tener varios CAF por tipo de documento; solo uno activo
// por tipo. El folio de un DTE siempre proviene del rango de un CAF vigente.
type CAF struct {
	ID                 string
	EmpresaID          string
	TipoDTE            string // 33, 34, 39, 52, 56, 61
	RangoDesde         int64  // primer folio autorizado
	RangoHasta         int64  // último folio autorizado
	UltimoFolioUsado   int64  // 0 si aún no se emite con este CAF
	FechaAutorizacion  time.Time
	Activo             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FoliosDisponibles devuelve cuántos folios quedan en el rango.
func (c *CAF) FoliosDisponibles() int64 {
	usado := c.UltimoFolioUsado
	if usado < c.RangoDesde-1 {
		usado = c.RangoDesde - 1
	}
	return c.RangoHasta - usado
}

// SiguienteFolio devuelve el próximo folio del rango, o 0 si está agotado.
func (c *CAF) SiguienteFolio() int64 {
	if c.FoliosDisponibles() <= 0 {
		return 0
	}
	if c.UltimoFolioUsado < c.RangoDesde-1 {
		return c.RangoDesde
	}
	return c.UltimoFolioUsado + 1
}
