package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// EmpresaRepository define el puerto de persistencia para empresas emisoras.
type EmpresaRepository interface {
	Create(ctx context.Context, empresa *entity.Empresa) error
	GetByID(ctx context.Context, id string) (*entity.Empresa, error)
	GetByRUT(ctx context.Context, rut string) (*entity.Empresa, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Empresa, error)
	Update(ctx context.Context, empresa *entity.Empresa) error
}
