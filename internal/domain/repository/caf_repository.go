package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CAFRepository define el puerto de persistencia para los CAF
// (rangos de folios autorizados por el SII).
type CAFRepository interface {
	Create(ctx context.Context, caf *entity.CAF) error
	GetByID(ctx context.Context, id string) (*entity.CAF, error)

	// GetActivoByEmpresaYTipo devuelve el CAF activo para la empresa y tipo
	// de documento dados. Es la consulta crítica antes de asignar folio: sin
	// CAF vigente no se puede emitir y el documento sería rechazado.
	GetActivoByEmpresaYTipo(ctx context.Context, empresaID, tipoDTE string) (*entity.CAF, error)

	ListByEmpresa(ctx context.Context, empresaID string) ([]*entity.CAF, error)

	// MarcarFolioUsado registra el último folio consumido del rango.
	MarcarFolioUsado(ctx context.Context, cafID string, folio int64) error

	Update(ctx context.Context, caf *entity.CAF) error
}
