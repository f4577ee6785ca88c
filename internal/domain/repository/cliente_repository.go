package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// ClienteRepository define el puerto de persistencia para receptores.
type ClienteRepository interface {
	Create(ctx context.Context, cliente *entity.Cliente) error
	GetByID(ctx context.Context, id string) (*entity.Cliente, error)
	GetByEmpresaYRUT(ctx context.Context, empresaID, rut string) (*entity.Cliente, error)
	ListByEmpresa(ctx context.Context, empresaID string, limit, offset int) ([]*entity.Cliente, error)
	Update(ctx context.Context, cliente *entity.Cliente) error
}
