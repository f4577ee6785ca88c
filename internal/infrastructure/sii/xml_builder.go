package sii

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// DTEBuildContext datos necesarios para generar el XML de un DTE.
type DTEBuildContext struct {
	Documento *entity.DocumentoTributario
	Detalles  []entity.DetalleDocumento
	// TmstFirma momento de la firma; si es cero se usa time.Now().
	TmstFirma time.Time
}

// XMLBuilderService construye el XML del DTE según el esquema del SII
// (formato Documento/Encabezado/Detalle, sin la firma; esa la agrega el
// signer como <Signature> envolvente sobre <Documento>).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el []byte del DTE en ISO-8859-1, codificación que exige el
// esquema del SII.
func (s *XMLBuilderService) Build(ctx *DTEBuildContext) ([]byte, error) {
	if ctx == nil || ctx.Documento == nil {
		return nil, fmt.Errorf("sii: falta documento en el contexto")
	}
	if len(ctx.Detalles) == 0 {
		return nil, fmt.Errorf("sii: el DTE requiere al menos un detalle")
	}
	doc := ctx.Documento

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?>` + "\n")

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "DTE"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "version"}, Value: "1.0"},
			{Name: xml.Name{Local: "xmlns"}, Value: "http://www.sii.cl/SiiDte"},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, err
	}

	// Documento con ID para la Reference URI de la firma.
	docID := fmt.Sprintf("F%dT%s", doc.Folio, doc.TipoDTE)
	documento := xml.StartElement{
		Name: xml.Name{Local: "Documento"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "ID"}, Value: docID}},
	}
	_ = enc.EncodeToken(documento)

	if err := s.writeEncabezado(enc, doc); err != nil {
		return nil, err
	}
	for _, det := range ctx.Detalles {
		s.writeDetalle(enc, det)
	}

	tmst := ctx.TmstFirma
	if tmst.IsZero() {
		tmst = time.Now()
	}
	writeEl(enc, "TmstFirma", tmst.Format("2006-01-02T15:04:05"))

	_ = enc.EncodeToken(documento.End())
	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	// encoding/xml emite UTF-8; el SII exige ISO-8859-1.
	latin1, err := charmap.ISO8859_1.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sii: transcodificar a ISO-8859-1: %w", err)
	}
	return latin1, nil
}

func (s *XMLBuilderService) writeEncabezado(enc *xml.Encoder, doc *entity.DocumentoTributario) error {
	start(enc, "Encabezado")

	// ---- IdDoc: tipo, folio y fecha de emisión
	start(enc, "IdDoc")
	writeEl(enc, "TipoDTE", doc.TipoDTE)
	writeEl(enc, "Folio", strconv.FormatInt(doc.Folio, 10))
	writeEl(enc, "FchEmis", doc.FechaEmision.Format("2006-01-02"))
	end(enc, "IdDoc")

	// ---- Emisor
	start(enc, "Emisor")
	writeEl(enc, "RUTEmisor", pkgsii.FormatearRUTPlano(doc.RUTEmisor))
	writeEl(enc, "RznSoc", doc.RazonSocialEmisor)
	writeEl(enc, "GiroEmis", doc.GiroEmisor)
	end(enc, "Emisor")

	// ---- Receptor
	start(enc, "Receptor")
	writeEl(enc, "RUTRecep", pkgsii.FormatearRUTPlano(doc.RUTReceptor))
	writeEl(enc, "RznSocRecep", doc.RazonSocialReceptor)
	if doc.GiroReceptor != "" {
		writeEl(enc, "GiroRecep", doc.GiroReceptor)
	}
	end(enc, "Receptor")

	// ---- Totales: montos en pesos enteros (CLP no usa decimales)
	start(enc, "Totales")
	writeEl(enc, "MntNeto", formatMonto(doc.MontoNeto))
	if doc.MontoExento.IsPositive() {
		writeEl(enc, "MntExe", formatMonto(doc.MontoExento))
	}
	writeEl(enc, "TasaIVA", "19")
	writeEl(enc, "IVA", formatMonto(doc.MontoIVA))
	writeEl(enc, "MntTotal", formatMonto(doc.MontoTotal))
	end(enc, "Totales")

	end(enc, "Encabezado")
	return nil
}

func (s *XMLBuilderService) writeDetalle(enc *xml.Encoder, det entity.DetalleDocumento) {
	start(enc, "Detalle")
	writeEl(enc, "NroLinDet", strconv.Itoa(det.NumeroLinea))
	if det.Exento {
		// IndExe 1 = ítem no afecto a IVA
		writeEl(enc, "IndExe", "1")
	}
	writeEl(enc, "NmbItem", det.Descripcion)
	writeEl(enc, "QtyItem", formatCantidad(det.Cantidad))
	writeEl(enc, "PrcItem", formatCantidad(det.PrecioUnitario))
	if det.Descuento.IsPositive() {
		writeEl(enc, "DescuentoPct", formatCantidad(det.Descuento))
	}
	for _, imp := range det.Adicionales {
		writeEl(enc, "CodImpAdic", imp.Codigo)
	}
	writeEl(enc, "MontoItem", formatMonto(det.MontoItem))
	end(enc, "Detalle")
}

func start(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: local}})
}

func end(enc *xml.Encoder, local string) {
	_ = enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: local}})
}

func writeEl(enc *xml.Encoder, local, value string) {
	start(enc, local)
	_ = enc.EncodeToken(xml.CharData(value))
	end(enc, local)
}

// formatMonto montos agregados: pesos enteros, sin decimales.
func formatMonto(d decimal.Decimal) string {
	return d.Round(0).StringFixed(0)
}

// formatCantidad cantidades y precios unitarios: hasta 6 decimales
// significativos, sin ceros de relleno.
func formatCantidad(d decimal.Decimal) string {
	return d.Round(6).String()
}
