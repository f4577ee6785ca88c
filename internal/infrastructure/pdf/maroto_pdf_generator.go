// Package pdf implementa la generación de la Representación Gráfica de un
// Documento Tributario Electrónico (DTE) según el formato de muestra impresa
// del SII (Res. Ex. N° 45 de 2003).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EMISOR: Razón Social + Giro   │ ╔═ R.U.T. EMISOR ═════════╗│
//	│                                │ ║  FACTURA ELECTRÓNICA    ║│
//	│                                │ ║  N° (folio)             ║│
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: RUT + Razón Social + Giro + Fecha emisión        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Desc% | E | Monto      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Neto / Exento / IVA 19% / TOTAL                    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TIMBRE ELECTRÓNICO (QR) + Leyenda legal                     │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/pkg/sii"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	// El recuadro RUT/tipo/folio va en rojo por norma del SII.
	colorSIIRed = &props.Color{Red: 180, Green: 0, Blue: 0}
	colorGray   = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator genera la representación gráfica del DTE usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateDocumentoPDF genera el PDF del DTE y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateDocumentoPDF(
	_ context.Context,
	doc *entity.DocumentoTributario,
	detalles []entity.DetalleDocumento,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(nombreTipo(doc.TipoDTE), true).
		WithAuthor(doc.RazonSocialEmisor, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorSIIRed, Thickness: 0.5}))
	m.AddRows(receptorRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))

	// Tabla de detalles
	m.AddRows(tableHeaderRow())
	for _, r := range tableDetailRows(detalles) {
		m.AddRows(r)
	}

	// Totales
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	// Timbre y leyenda
	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range timbreRows(doc) {
		m.AddRows(r)
	}

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: razón social y giro del emisor (izq), recuadro rojo con RUT,
// tipo de documento y folio (der).
func headerRow(doc *entity.DocumentoTributario) core.Row {
	return row.New(24).Add(
		col.New(7).Add(
			text.New(doc.RazonSocialEmisor, props.Text{
				Style: fontstyle.Bold, Size: 13, Top: 1,
			}),
			text.New("Giro: "+doc.GiroEmisor, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("R.U.T.: "+sii.FormatearRUT(doc.RUTEmisor), props.Text{
				Style: fontstyle.Bold, Size: 11, Align: align.Center,
				Color: colorSIIRed, Top: 1,
			}),
			text.New(nombreTipo(doc.TipoDTE), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Center,
				Color: colorSIIRed, Top: 8,
			}),
			text.New(fmt.Sprintf("N° %d", doc.Folio), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Center,
				Color: colorSIIRed, Top: 15,
			}),
		),
	)
}

// receptorRow: datos del receptor y fecha de emisión.
func receptorRow(doc *entity.DocumentoTributario) core.Row {
	return row.New(16).Add(
		col.New(12).Add(
			text.New("SEÑOR(ES)", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorGray, Top: 1,
			}),
			text.New(doc.RazonSocialReceptor, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("R.U.T.: %s   |   Giro: %s   |   Fecha emisión: %s",
				sii.FormatearRUT(doc.RUTReceptor),
				nonEmpty(doc.GiroReceptor, "—"),
				doc.FechaEmision.Format("02/01/2006"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de detalles.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("Precio Unit.", 2, align.Right),
		h("Desc.%", 1, align.Center),
		h("E", 1, align.Center),
		h("Monto", 2, align.Right),
	)
}

// tableDetailRows: una fila por línea de detalle. La columna E marca con "E"
// los ítems exentos de IVA.
func tableDetailRows(detalles []entity.DetalleDocumento) []core.Row {
	result := make([]core.Row, 0, len(detalles))
	for _, d := range detalles {
		exento := ""
		if d.Exento {
			exento = "E"
		}
		descuento := "—"
		if d.Descuento.IsPositive() {
			descuento = d.Descuento.StringFixed(0) + "%"
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				d.Cantidad.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				d.Descripcion,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(d.PrecioUnitario.Round(0).StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				descuento,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(1).Add(text.New(
				exento,
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(d.MontoItem.Round(0).StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(doc *entity.DocumentoTributario) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorSIIRed, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorSIIRed, Right: 1,
		})
	}

	return row.New(32).Add(
		col.New(3),
		col.New(3).Add(
			label("Monto neto:"),
			label("Monto exento:"),
			label("IVA (19%):"),
			grandLabel("TOTAL:"),
		),
		col.New(3).Add(
			value("$"+formatMoney(doc.MontoNeto.StringFixed(0))),
			value("$"+formatMoney(doc.MontoExento.StringFixed(0))),
			value("$"+formatMoney(doc.MontoIVA.StringFixed(0))),
			grandValue("$"+formatMoney(doc.MontoTotal.StringFixed(0))),
		),
		col.New(3),
	)
}

// timbreRows: timbre electrónico (QR con los datos de verificación) + leyenda.
func timbreRows(doc *entity.DocumentoTributario) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("TIMBRE ELECTRÓNICO SII", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorSIIRed, Top: 1,
			}),
		)),
	}

	qrData := fmt.Sprintf("RE=%s;TD=%s;F=%d;FE=%s;RR=%s;MNT=%s",
		sii.FormatearRUTPlano(doc.RUTEmisor),
		doc.TipoDTE,
		doc.Folio,
		doc.FechaEmision.Format("2006-01-02"),
		sii.FormatearRUTPlano(doc.RUTReceptor),
		doc.MontoTotal.StringFixed(0),
	)
	rows = append(rows, row.New(45).Add(
		col.New(4).Add(code.NewQr(qrData, props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("Verifique este documento en www.sii.cl", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New(nombreTipo(doc.TipoDTE), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 20,
				Left: 3, Color: colorSIIRed,
			}),
		),
	))

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Documento Tributario Electrónico emitido según Res. Ex. SII N° 45 de 2003. "+
				"Conserve este documento como respaldo tributario.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nombreTipo(tipoDTE string) string {
	if n, ok := sii.NombreTipoDTE[tipoDTE]; ok {
		return n
	}
	return "DOCUMENTO TRIBUTARIO ELECTRÓNICO"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
