package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// DocumentoRepository define el puerto de persistencia para documentos
// tributarios, sus detalles y su historial.
//
// La unicidad (empresa, tipo, folio) la garantiza la implementación con una
// constraint única: Create retorna domain.ErrConflict en vez de sobrescribir.
type DocumentoRepository interface {
	Create(ctx context.Context, doc *entity.DocumentoTributario) error
	CreateDetalle(ctx context.Context, detalle *entity.DetalleDocumento) error

	// Update actualiza cabecera y campos SII del documento:
	// montos, estado, track_id, glosa_sii, xml, updated_at.
	Update(ctx context.Context, doc *entity.DocumentoTributario) error

	GetByID(ctx context.Context, id string) (*entity.DocumentoTributario, error)
	GetDetalles(ctx context.Context, documentoID string) ([]entity.DetalleDocumento, error)

	// ReplaceDetalles reemplaza todas las líneas del documento (edición de
	// borrador). Solo el caso de uso de edición la invoca, y solo en PENDIENTE.
	ReplaceDetalles(ctx context.Context, documentoID string, detalles []entity.DetalleDocumento) error

	// AppendEvento agrega un evento al historial. El historial es append-only:
	// no existe operación de actualización ni borrado de eventos.
	AppendEvento(ctx context.Context, evento *entity.EventoDocumento) error
	GetEventos(ctx context.Context, documentoID string) ([]entity.EventoDocumento, error)

	// Delete elimina un documento con sus detalles. El guard de estado
	// (solo PENDIENTE) pertenece al caso de uso, no al repositorio.
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, empresaID, estado string, limit, offset int) ([]*entity.DocumentoTributario, error)

	// CountPorEstado devuelve la cantidad de documentos por estado (dashboard).
	CountPorEstado(ctx context.Context, empresaID string) (map[string]int64, error)
}
