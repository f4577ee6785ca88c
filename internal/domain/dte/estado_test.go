package dte_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/dte"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

func TestTransicionar_CicloFeliz(t *testing.T) {
	estado, err := dte.Transicionar("", dte.EventoCrear)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPendiente, estado)

	estado, err = dte.Transicionar(estado, dte.EventoEnviar)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoEnviado, estado)

	estado, err = dte.Transicionar(estado, dte.EventoAceptar)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoAceptado, estado)

	estado, err = dte.Transicionar(estado, dte.EventoAnular)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoAnulado, estado)
}

func TestTransicionar_RechazoYReintento(t *testing.T) {
	estado, err := dte.Transicionar(entity.EstadoEnviado, dte.EventoRechazar)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoRechazado, estado)

	// Reintento de envío permitido desde RECHAZADO y ERROR.
	for _, desde := range []string{entity.EstadoRechazado, entity.EstadoError} {
		estado, err = dte.Transicionar(desde, dte.EventoEnviar)
		require.NoError(t, err, "desde %s", desde)
		assert.Equal(t, entity.EstadoEnviado, estado)
	}
}

func TestTransicionar_FallaDeEnvio(t *testing.T) {
	// Una falla del gateway lleva a ERROR, no de vuelta a PENDIENTE.
	estado, err := dte.Transicionar(entity.EstadoPendiente, dte.EventoFallaEnvio)
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoError, estado)
}

// Cualquier par (estado, evento) fuera de la tabla falla y no cambia nada.
func TestTransicionar_TransicionesInvalidas(t *testing.T) {
	casos := []struct {
		desde  string
		evento dte.Evento
	}{
		{entity.EstadoPendiente, dte.EventoAceptar}, // no puede saltarse ENVIADO
		{entity.EstadoPendiente, dte.EventoRechazar},
		{entity.EstadoPendiente, dte.EventoAnular},
		{entity.EstadoEnviado, dte.EventoEnviar}, // envío ya en curso
		{entity.EstadoEnviado, dte.EventoEditar},
		{entity.EstadoEnviado, dte.EventoEliminar},
		{entity.EstadoAceptado, dte.EventoEnviar},
		{entity.EstadoAceptado, dte.EventoEliminar}, // prohibido una vez aceptado
		{entity.EstadoAceptado, dte.EventoEditar},
		{entity.EstadoRechazado, dte.EventoAnular},
		{entity.EstadoRechazado, dte.EventoEditar},
		{entity.EstadoError, dte.EventoAceptar},
		{entity.EstadoAnulado, dte.EventoEnviar}, // ANULADO es terminal
		{entity.EstadoAnulado, dte.EventoAnular},
		{"", dte.EventoEnviar},
	}
	for _, c := range casos {
		_, err := dte.Transicionar(c.desde, c.evento)
		var trErr *domain.TransicionInvalidaError
		require.ErrorAs(t, err, &trErr, "desde=%q evento=%q", c.desde, c.evento)
		assert.Equal(t, c.desde, trErr.Desde)
		assert.Equal(t, string(c.evento), trErr.Evento)
	}
}

func TestPuedeEditar(t *testing.T) {
	assert.True(t, dte.PuedeEditar(entity.EstadoPendiente))
	for _, estado := range []string{
		entity.EstadoEnviado, entity.EstadoAceptado, entity.EstadoRechazado,
		entity.EstadoError, entity.EstadoAnulado,
	} {
		assert.False(t, dte.PuedeEditar(estado), estado)
	}
}

// El historial es proyectable: el estado actual es el del último evento.
func TestEstadoDesdeHistorial(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	eventos := []entity.EventoDocumento{
		{Fecha: base, Estado: entity.EstadoPendiente, Detalle: "documento creado"},
		{Fecha: base.Add(time.Minute), Estado: entity.EstadoEnviado, Detalle: "enviado al SII"},
		{Fecha: base.Add(2 * time.Minute), Estado: entity.EstadoAceptado, Detalle: "aceptado"},
	}
	assert.Equal(t, entity.EstadoAceptado, dte.EstadoDesdeHistorial(eventos))
	assert.Equal(t, "", dte.EstadoDesdeHistorial(nil))
}
