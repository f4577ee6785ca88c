package dto

import (
	"github.com/shopspring/decimal"
)

// ItemRequest línea de detalle en requests de creación/edición/preview.
type ItemRequest struct {
	Descripcion    string               `json:"descripcion"`
	Cantidad       decimal.Decimal      `json:"cantidad"`
	PrecioUnitario decimal.Decimal      `json:"precio_unitario"`
	Descuento      decimal.Decimal      `json:"descuento"` // porcentaje 0–100
	Exento         bool                 `json:"exento,omitempty"`
	Adicionales    []AdicionalRequest   `json:"impuestos_adicionales,omitempty"`
}

// AdicionalRequest impuesto adicional por línea.
type AdicionalRequest struct {
	Codigo string          `json:"codigo"`
	Tasa   decimal.Decimal `json:"tasa"`
	Monto  decimal.Decimal `json:"monto,omitempty"`
}

// CreateDocumentoRequest body para POST /api/documentos.
// Folio es opcional: si va en cero se asigna desde el CAF activo del tipo.
type CreateDocumentoRequest struct {
	Tipo                string        `json:"tipo"` // 33, 34, 39, 52, 56, 61
	Folio               int64         `json:"folio,omitempty"`
	RUTReceptor         string        `json:"rut_receptor"`
	RazonSocialReceptor string        `json:"razon_social_receptor,omitempty"`
	GiroReceptor        string        `json:"giro_receptor,omitempty"`
	FechaEmision        string        `json:"fecha_emision,omitempty"` // YYYY-MM-DD; hoy si va vacía
	Items               []ItemRequest `json:"items"`
}

// EditDocumentoRequest body para PUT /api/documentos/:id (solo borradores).
type EditDocumentoRequest struct {
	RUTReceptor         string        `json:"rut_receptor,omitempty"`
	RazonSocialReceptor string        `json:"razon_social_receptor,omitempty"`
	GiroReceptor        string        `json:"giro_receptor,omitempty"`
	FechaEmision        string        `json:"fecha_emision,omitempty"`
	Items               []ItemRequest `json:"items,omitempty"`
}

// ItemResponse línea de detalle en respuestas.
type ItemResponse struct {
	Descripcion    string              `json:"descripcion"`
	Cantidad       decimal.Decimal     `json:"cantidad"`
	PrecioUnitario decimal.Decimal     `json:"precio_unitario"`
	Descuento      decimal.Decimal     `json:"descuento"`
	Exento         bool                `json:"exento,omitempty"`
	MontoItem      decimal.Decimal     `json:"monto_item"`
	Adicionales    []AdicionalRequest  `json:"impuestos_adicionales,omitempty"`
}

// EventoResponse entrada del historial en respuestas.
type EventoResponse struct {
	Fecha   string `json:"fecha"`
	Estado  string `json:"estado"`
	Detalle string `json:"detalle,omitempty"`
	Usuario string `json:"usuario,omitempty"`
}

// DocumentoResponse documento completo en respuestas.
type DocumentoResponse struct {
	ID                  string           `json:"id"`
	EmpresaID           string           `json:"empresa_id"`
	Tipo                string           `json:"tipo"`
	Folio               int64            `json:"folio"`
	RUTEmisor           string           `json:"rut_emisor"`
	RazonSocialEmisor   string           `json:"razon_social_emisor,omitempty"`
	RUTReceptor         string           `json:"rut_receptor"`
	RazonSocialReceptor string           `json:"razon_social_receptor,omitempty"`
	FechaEmision        string           `json:"fecha_emision"`
	MontoNeto           decimal.Decimal  `json:"monto_neto"`
	MontoExento         decimal.Decimal  `json:"monto_exento"`
	MontoIVA            decimal.Decimal  `json:"monto_iva"`
	MontoTotal          decimal.Decimal  `json:"monto_total"`
	Estado              string           `json:"estado"`
	TrackID             string           `json:"track_id,omitempty"`
	GlosaSII            string           `json:"glosa_sii,omitempty"`
	Items               []ItemResponse   `json:"items"`
	Historial           []EventoResponse `json:"historial"`
}

// TotalesResponse respuesta de POST /api/documentos/totales (preview).
type TotalesResponse struct {
	Neto   decimal.Decimal `json:"neto"`
	Exento decimal.Decimal `json:"exento"`
	IVA    decimal.Decimal `json:"iva"`
	Total  decimal.Decimal `json:"total"`
}

// EstadoSIIResponse respuesta ligera para GET /api/documentos/:id/estado.
// El frontend consulta este endpoint hasta que estado sea ACEPTADO o RECHAZADO.
type EstadoSIIResponse struct {
	ID       string `json:"id"`
	Estado   string `json:"estado"`
	TrackID  string `json:"track_id,omitempty"`
	GlosaSII string `json:"glosa_sii,omitempty"`
}

// EstadisticasResponse conteo de documentos por estado.
type EstadisticasResponse struct {
	Pendientes int64 `json:"pendientes"`
	Enviados   int64 `json:"enviados"`
	Aceptados  int64 `json:"aceptados"`
	Rechazados int64 `json:"rechazados"`
	Error      int64 `json:"error"`
	Anulados   int64 `json:"anulados"`
	Total      int64 `json:"total"`
}
