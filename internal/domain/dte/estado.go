package dte

import (
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Evento del ciclo de vida de un documento.
type Evento string

const (
	EventoCrear      Evento = "crear"
	EventoEditar     Evento = "editar"
	EventoEnviar     Evento = "enviar"
	EventoAceptar    Evento = "aceptar"
	EventoRechazar   Evento = "rechazar"
	EventoFallaEnvio Evento = "falla_envio"
	EventoAnular     Evento = "anular"
	EventoEliminar   Evento = "eliminar"
)

// EstadoEliminado es el pseudo-estado resultante de eliminar un borrador.
// No se persiste como estado del documento: marca la transición terminal.
const EstadoEliminado = "ELIMINADO"

// transiciones es la tabla completa de transiciones legales. Cualquier par
// (estado, evento) ausente es una transición inválida y deja el documento
// exactamente como estaba.
var transiciones = map[string]map[Evento]string{
	"": {
		EventoCrear: entity.EstadoPendiente,
	},
	entity.EstadoPendiente: {
		EventoEditar:     entity.EstadoPendiente,
		EventoEnviar:     entity.EstadoEnviado,
		EventoFallaEnvio: entity.EstadoError,
		EventoEliminar:   EstadoEliminado,
	},
	entity.EstadoEnviado: {
		EventoAceptar:  entity.EstadoAceptado,
		EventoRechazar: entity.EstadoRechazado,
	},
	// Reintento de envío: permitido solo desde RECHAZADO y ERROR.
	entity.EstadoRechazado: {
		EventoEnviar:     entity.EstadoEnviado,
		EventoFallaEnvio: entity.EstadoError,
	},
	entity.EstadoError: {
		EventoEnviar:     entity.EstadoEnviado,
		EventoFallaEnvio: entity.EstadoError,
	},
	entity.EstadoAceptado: {
		EventoAnular: entity.EstadoAnulado,
	},
	entity.EstadoAnulado: {},
}

// Transicionar resuelve el estado resultante de aplicar evento al estado
// actual. Es la única función del sistema que decide legalidad de
// transiciones; las capas de UI y reporte solo leen el estado.
func Transicionar(actual string, evento Evento) (string, error) {
	porEvento, ok := transiciones[actual]
	if !ok {
		return "", &domain.TransicionInvalidaError{Desde: actual, Evento: string(evento)}
	}
	siguiente, ok := porEvento[evento]
	if !ok {
		return "", &domain.TransicionInvalidaError{Desde: actual, Evento: string(evento)}
	}
	return siguiente, nil
}

// PuedeEditar indica si las líneas y campos del documento son mutables.
// Los totales son inmutables una vez que el estado sale de PENDIENTE.
func PuedeEditar(estado string) bool {
	return estado == entity.EstadoPendiente
}

// EstadoDesdeHistorial proyecta el estado actual desde el historial
// (estado = estado resultante del último evento). Permite auditar que el
// campo persistido coincide con el log y reconstruirlo en un replay.
func EstadoDesdeHistorial(eventos []entity.EventoDocumento) string {
	if len(eventos) == 0 {
		return ""
	}
	return eventos[len(eventos)-1].Estado
}
