package empresa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// CAFUseCase administra los rangos de folios autorizados por el SII.
type CAFUseCase struct {
	repo repository.CAFRepository
}

// NewCAFUseCase construye el caso de uso con el puerto de persistencia.
func NewCAFUseCase(repo repository.CAFRepository) *CAFUseCase {
	return &CAFUseCase{repo: repo}
}

// Create carga un CAF para la empresa y tipo de documento. El CAF nuevo queda
// activo; si había otro activo para el mismo tipo se desactiva (solo un CAF
// activo por tipo decide los folios).
func (uc *CAFUseCase) Create(ctx context.Context, empresaID string, in dto.CreateCAFRequest) (*dto.CAFResponse, error) {
	if !pkgsii.TiposDTEValidos[in.Tipo] {
		return nil, fmt.Errorf("tipo de DTE %q no soportado: %w", in.Tipo, domain.ErrInvalidInput)
	}
	if in.RangoDesde <= 0 || in.RangoHasta < in.RangoDesde {
		return nil, fmt.Errorf("rango de folios %d-%d inválido: %w", in.RangoDesde, in.RangoHasta, domain.ErrInvalidInput)
	}
	fechaAut := time.Now()
	if in.FechaAutorizacion != "" {
		parsed, err := time.Parse("2006-01-02", in.FechaAutorizacion)
		if err != nil {
			return nil, fmt.Errorf("fecha_autorizacion %q inválida (usar YYYY-MM-DD): %w", in.FechaAutorizacion, domain.ErrInvalidInput)
		}
		fechaAut = parsed
	}

	anterior, err := uc.repo.GetActivoByEmpresaYTipo(ctx, empresaID, in.Tipo)
	if err != nil {
		return nil, err
	}
	if anterior != nil {
		if anterior.RangoHasta >= in.RangoDesde {
			return nil, fmt.Errorf("rango %d-%d se solapa con CAF activo %d-%d: %w",
				in.RangoDesde, in.RangoHasta, anterior.RangoDesde, anterior.RangoHasta, domain.ErrConflict)
		}
		anterior.Activo = false
		anterior.UpdatedAt = time.Now()
		if err := uc.repo.Update(ctx, anterior); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	caf := &entity.CAF{
		ID:                uuid.New().String(),
		EmpresaID:         empresaID,
		TipoDTE:           in.Tipo,
		RangoDesde:        in.RangoDesde,
		RangoHasta:        in.RangoHasta,
		FechaAutorizacion: fechaAut,
		Activo:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, caf); err != nil {
		return nil, err
	}
	return toCAFResponse(caf), nil
}

// List lista los CAF de la empresa con sus folios disponibles.
func (uc *CAFUseCase) List(ctx context.Context, empresaID string) ([]dto.CAFResponse, error) {
	cafs, err := uc.repo.ListByEmpresa(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CAFResponse, 0, len(cafs))
	for _, caf := range cafs {
		out = append(out, *toCAFResponse(caf))
	}
	return out, nil
}

func toCAFResponse(caf *entity.CAF) *dto.CAFResponse {
	return &dto.CAFResponse{
		ID:                caf.ID,
		EmpresaID:         caf.EmpresaID,
		Tipo:              caf.TipoDTE,
		RangoDesde:        caf.RangoDesde,
		RangoHasta:        caf.RangoHasta,
		UltimoFolioUsado:  caf.UltimoFolioUsado,
		FoliosDisponibles: caf.FoliosDisponibles(),
		Activo:            caf.Activo,
	}
}
