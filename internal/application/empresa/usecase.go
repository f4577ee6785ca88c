// Package empresa contiene los casos de uso de administración: empresas
// emisoras, clientes receptores y carga de CAF (rangos de folios).
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

// EmpresaUseCase aplica reglas de negocio para empresas emisoras.
type EmpresaUseCase struct {
	repo repository.EmpresaRepository
}

// NewEmpresaUseCase construye el caso de uso con el puerto de persistencia.
func NewEmpresaUseCase(repo repository.EmpresaRepository) *EmpresaUseCase {
	return &EmpresaUseCase{repo: repo}
}

// Create registra una empresa emisora. El RUT se valida con módulo 11 y se
// almacena en formato plano; devuelve ErrConflict si ya existe.
func (uc *EmpresaUseCase) Create(ctx context.Context, in dto.CreateEmpresaRequest) (*dto.EmpresaResponse, error) {
	if !pkgsii.ValidarRUT(in.RUT) {
		return nil, &domain.RUTInvalidoError{Campo: "rut", RUT: in.RUT}
	}
	if in.RazonSocial == "" {
		return nil, fmt.Errorf("razón social requerida: %w", domain.ErrInvalidInput)
	}
	rut := pkgsii.FormatearRUTPlano(in.RUT)
	existing, err := uc.repo.GetByRUT(ctx, rut)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("empresa con RUT %s ya registrada: %w", pkgsii.FormatearRUT(rut), domain.ErrConflict)
	}
	now := time.Now()
	empresa := &entity.Empresa{
		ID:          uuid.New().String(),
		RUT:         rut,
		RazonSocial: in.RazonSocial,
		Giro:        in.Giro,
		Direccion:   in.Direccion,
		Comuna:      in.Comuna,
		Email:       in.Email,
		Telefono:    in.Telefono,
		Status:      "active",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, empresa); err != nil {
		return nil, err
	}
	return toEmpresaResponse(empresa), nil
}

// GetByID obtiene una empresa por ID.
func (uc *EmpresaUseCase) GetByID(ctx context.Context, id string) (*dto.EmpresaResponse, error) {
	empresa, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if empresa == nil {
		return nil, domain.ErrNotFound
	}
	return toEmpresaResponse(empresa), nil
}

// List lista empresas con paginación.
func (uc *EmpresaUseCase) List(ctx context.Context, page dto.PageRequest) ([]dto.EmpresaResponse, error) {
	page.DefaultPage()
	empresas, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EmpresaResponse, 0, len(empresas))
	for _, e := range empresas {
		out = append(out, *toEmpresaResponse(e))
	}
	return out, nil
}

func toEmpresaResponse(e *entity.Empresa) *dto.EmpresaResponse {
	return &dto.EmpresaResponse{
		ID:          e.ID,
		RUT:         pkgsii.FormatearRUT(e.RUT),
		RazonSocial: e.RazonSocial,
		Giro:        e.Giro,
		Direccion:   e.Direccion,
		Comuna:      e.Comuna,
		Email:       e.Email,
		Telefono:    e.Telefono,
		Status:      e.Status,
	}
}
