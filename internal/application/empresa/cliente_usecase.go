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

// ClienteUseCase aplica reglas de negocio para clientes receptores.
type ClienteUseCase struct {
	repo repository.ClienteRepository
}

// NewClienteUseCase construye el caso de uso con el puerto de persistencia.
func NewClienteUseCase(repo repository.ClienteRepository) *ClienteUseCase {
	return &ClienteUseCase{repo: repo}
}

// Create registra un receptor para la empresa. El RUT se valida con módulo 11;
// devuelve ErrConflict si el RUT ya está registrado en la empresa.
func (uc *ClienteUseCase) Create(ctx context.Context, empresaID string, in dto.CreateClienteRequest) (*dto.ClienteResponse, error) {
	if !pkgsii.ValidarRUT(in.RUT) {
		return nil, &domain.RUTInvalidoError{Campo: "rut", RUT: in.RUT}
	}
	if in.RazonSocial == "" {
		return nil, fmt.Errorf("razón social requerida: %w", domain.ErrInvalidInput)
	}
	rut := pkgsii.FormatearRUTPlano(in.RUT)
	existing, err := uc.repo.GetByEmpresaYRUT(ctx, empresaID, rut)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("cliente con RUT %s ya registrado: %w", pkgsii.FormatearRUT(rut), domain.ErrConflict)
	}
	now := time.Now()
	cliente := &entity.Cliente{
		ID:          uuid.New().String(),
		EmpresaID:   empresaID,
		RUT:         rut,
		RazonSocial: in.RazonSocial,
		Giro:        in.Giro,
		Direccion:   in.Direccion,
		Comuna:      in.Comuna,
		Email:       in.Email,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, cliente); err != nil {
		return nil, err
	}
	return toClienteResponse(cliente), nil
}

// List lista los clientes de la empresa con paginación.
func (uc *ClienteUseCase) List(ctx context.Context, empresaID string, page dto.PageRequest) ([]dto.ClienteResponse, error) {
	page.DefaultPage()
	clientes, err := uc.repo.ListByEmpresa(ctx, empresaID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ClienteResponse, 0, len(clientes))
	for _, c := range clientes {
		out = append(out, *toClienteResponse(c))
	}
	return out, nil
}

// GetByID obtiene un cliente verificando pertenencia a la empresa.
func (uc *ClienteUseCase) GetByID(ctx context.Context, empresaID, id string) (*dto.ClienteResponse, error) {
	cliente, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cliente == nil {
		return nil, domain.ErrNotFound
	}
	if cliente.EmpresaID != empresaID {
		return nil, domain.ErrForbidden
	}
	return toClienteResponse(cliente), nil
}

func toClienteResponse(c *entity.Cliente) *dto.ClienteResponse {
	return &dto.ClienteResponse{
		ID:          c.ID,
		EmpresaID:   c.EmpresaID,
		RUT:         pkgsii.FormatearRUT(c.RUT),
		RazonSocial: c.RazonSocial,
		Giro:        c.Giro,
		Direccion:   c.Direccion,
		Comuna:      c.Comuna,
		Email:       c.Email,
	}
}
