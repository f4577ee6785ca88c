package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrConflict     = errors.New("conflicto con el estado actual")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrEmailExists  = errors.New("el email ya está registrado")
	ErrSinFolios    = errors.New("no hay folios disponibles en el CAF activo")
)

// ItemInvalidoError indica que una línea de detalle no cumple las reglas de
// negocio (cantidad, precio, descuento o descripción). Indice es la posición
// de la línea en el documento (base 0).
type ItemInvalidoError struct {
	Indice int
	Campo  string
	Motivo string
}

func (e *ItemInvalidoError) Error() string {
	return fmt.Sprintf("ítem %d inválido: %s (%s)", e.Indice+1, e.Motivo, e.Campo)
}

// RUTInvalidoError indica que un RUT no pasó la validación de dígito verificador.
type RUTInvalidoError struct {
	Campo string // "rut_emisor" o "rut_receptor"
	RUT   string
}

func (e *RUTInvalidoError) Error() string {
	return fmt.Sprintf("%s inválido: %q no pasa la validación módulo 11", e.Campo, e.RUT)
}

// TransicionInvalidaError indica un intento de transición de estado no
// permitido por la tabla del ciclo de vida. El documento queda sin cambios.
type TransicionInvalidaError struct {
	Desde  string
	Evento string
}

func (e *TransicionInvalidaError) Error() string {
	return fmt.Sprintf("transición inválida: evento %q no permitido desde estado %q", e.Evento, e.Desde)
}

// GatewayError indica una falla de transporte o del SII durante el envío.
// El ciclo de vida la absorbe transicionando el documento a ERROR; el caller
// puede reintentar.
type GatewayError struct {
	Operacion string // "envio" o "consulta"
	Detalle   string
	Causa     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("error de gateway SII en %s: %s", e.Operacion, e.Detalle)
}

func (e *GatewayError) Unwrap() error { return e.Causa }
