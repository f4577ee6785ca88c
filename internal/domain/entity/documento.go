package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ciclo de vida de un DTE. La única fuente de verdad de las
// transiciones legales es internal/domain/dte (las capas de lectura solo
// consultan el valor, nunca deciden legalidad).
const (
	EstadoPendiente = "PENDIENTE" // Borrador, editable
	EstadoEnviado   = "ENVIADO"   // Enviado al SII, esperando respuesta
	EstadoAceptado  = "ACEPTADO"  // Aceptado por el SII (terminal salvo anulación)
	EstadoRechazado = "RECHAZADO" // Rechazado por el SII, reintentable
	EstadoError     = "ERROR"     // Falla de envío o procesamiento, reintentable
	EstadoAnulado   = "ANULADO"   // Anulado administrativamente (terminal)
)

// DocumentoTributario representa la cabecera de un DTE (factura, boleta,
// nota de crédito/débito, guía de despacho).
type DocumentoTributario struct {
	ID                  string
	EmpresaID           string
	TipoDTE             string // código SII: 33, 34, 39, 52, 56, 61
	Folio               int64  // correlativo por tipo; inmutable una vez asignado
	RUTEmisor           string
	RazonSocialEmisor   string
	GiroEmisor          string
	RUTReceptor         string
	RazonSocialReceptor string
	GiroReceptor        string
	FechaEmision        time.Time
	MontoNeto           decimal.Decimal
	MontoExento         decimal.Decimal
	MontoIVA            decimal.Decimal
	MontoTotal          decimal.Decimal
	Estado              string // ver constantes Estado*
	TrackID             string // track id del SII; un reintento genera uno nuevo y el anterior queda en el historial
	GlosaSII            string // explicación de estado devuelta por el SII
	XML                 string // XML firmado (artefacto, no afecta el estado)
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DetalleDocumento representa una línea de detalle del DTE.
type DetalleDocumento struct {
	ID             string
	DocumentoID    string
	NumeroLinea    int // orden dentro del documento (base 1)
	Descripcion    string
	Cantidad       decimal.Decimal
	PrecioUnitario decimal.Decimal
	Descuento      decimal.Decimal // porcentaje 0–100
	Exento         bool
	MontoItem      decimal.Decimal      // cantidad × precio × (1 − descuento/100)
	Adicionales    []ImpuestoAdicional  // impuestos adicionales por línea (opcional)
}

// ImpuestoAdicional representa un impuesto adicional por línea (ej: ILA).
// Se preserva para la representación XML; no entra en los totales del núcleo.
type ImpuestoAdicional struct {
	Codigo string
	Tasa   decimal.Decimal // porcentaje
	Monto  decimal.Decimal
}

// EventoDocumento es un registro inmutable del historial de un documento.
// Se crea exactamente uno por transición; nunca se edita ni se elimina.
type EventoDocumento struct {
	ID          string
	DocumentoID string
	Fecha       time.Time
	Estado      string // estado resultante de la transición
	Detalle     string
	Usuario     string
}
