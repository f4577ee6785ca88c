// Package sii contiene catálogos, validaciones y utilidades alineados a la
// normativa de Documentos Tributarios Electrónicos (DTE) del Servicio de
// Impuestos Internos de Chile.
package sii

// =============================================================================
// Tipos de DTE (códigos oficiales SII, Resolución Ex. N° 45 de 2003)
// =============================================================================

const (
	TipoFactura       = "33" // Factura Electrónica
	TipoFacturaExenta = "34" // Factura Exenta Electrónica
	TipoBoleta        = "39" // Boleta Electrónica
	TipoGuiaDespacho  = "52" // Guía de Despacho Electrónica
	TipoNotaDebito    = "56" // Nota de Débito Electrónica
	TipoNotaCredito   = "61" // Nota de Crédito Electrónica
)

// TiposDTEValidos contiene los códigos de tipo de documento soportados.
var TiposDTEValidos = map[string]bool{
	TipoFactura:       true,
	TipoFacturaExenta: true,
	TipoBoleta:        true,
	TipoGuiaDespacho:  true,
	TipoNotaDebito:    true,
	TipoNotaCredito:   true,
}

// NombreTipoDTE nombres legibles por tipo (representación gráfica y reportes).
var NombreTipoDTE = map[string]string{
	TipoFactura:       "FACTURA ELECTRÓNICA",
	TipoFacturaExenta: "FACTURA EXENTA ELECTRÓNICA",
	TipoBoleta:        "BOLETA ELECTRÓNICA",
	TipoGuiaDespacho:  "GUÍA DE DESPACHO ELECTRÓNICA",
	TipoNotaDebito:    "NOTA DE DÉBITO ELECTRÓNICA",
	TipoNotaCredito:   "NOTA DE CRÉDITO ELECTRÓNICA",
}

// =============================================================================
// Tasa de IVA vigente en Chile (D.L. 825, art. 14). Fija en 19%.
// =============================================================================

const TasaIVA = "0.19"

// =============================================================================
// Ambientes del SII
// =============================================================================

const (
	// AmbienteCertificacion apunta a maullin.sii.cl (set de pruebas).
	AmbienteCertificacion = "cert"
	// AmbienteProduccion apunta a palena.sii.cl.
	AmbienteProduccion = "prod"
	// AmbienteDev no envía al SII: simula la respuesta (desarrollo local).
	AmbienteDev = "dev"
)

// =============================================================================
// Estados de respuesta del SII sobre un envío (consulta por track id).
// Son los códigos observables de la interfaz de consulta de estado de envío.
// =============================================================================

const (
	EstadoSIIRecibido  = "REC" // Envío recibido, en proceso
	EstadoSIIAceptado  = "EPR" // Envío procesado y aceptado
	EstadoSIIRechazado = "RCH" // Envío rechazado
	EstadoSIIReparo    = "RPR" // Aceptado con reparos (se trata como aceptado)
)
