package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Asegura que EmpresaRepo implementa repository.EmpresaRepository.
var _ repository.EmpresaRepository = (*EmpresaRepo)(nil)

// EmpresaRepo implementación del puerto EmpresaRepository sobre PostgreSQL.
type EmpresaRepo struct {
	pool *pgxpool.Pool
}

// NewEmpresaRepository construye el adaptador de persistencia para empresas.
func NewEmpresaRepository(pool *pgxpool.Pool) *EmpresaRepo {
	return &EmpresaRepo{pool: pool}
}

// Create persiste una nueva empresa emisora.
func (r *EmpresaRepo) Create(ctx context.Context, empresa *entity.Empresa) error {
	if empresa.ID == "" {
		empresa.ID = uuid.New().String()
	}
	query := `
		INSERT INTO empresas (id, rut, razon_social, giro, direccion, comuna, email, telefono, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.pool.Exec(ctx, query,
		empresa.ID, empresa.RUT, empresa.RazonSocial, empresa.Giro,
		empresa.Direccion, empresa.Comuna, empresa.Email, empresa.Telefono,
		empresa.Status, empresa.CreatedAt, empresa.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("RUT %s ya registrado: %w", empresa.RUT, domain.ErrConflict)
		}
		return fmt.Errorf("insert empresa: %w", err)
	}
	return nil
}

// GetByID obtiene una empresa por ID. Devuelve nil, nil si no existe.
func (r *EmpresaRepo) GetByID(ctx context.Context, id string) (*entity.Empresa, error) {
	query := `
		SELECT id, rut, razon_social, giro, direccion, comuna, email, telefono, status, created_at, updated_at
		FROM empresas WHERE id = $1`
	empresa, err := scanEmpresa(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get empresa: %w", err)
	}
	return empresa, nil
}

// GetByRUT obtiene una empresa por RUT.
func (r *EmpresaRepo) GetByRUT(ctx context.Context, rut string) (*entity.Empresa, error) {
	query := `
		SELECT id, rut, razon_social, giro, direccion, comuna, email, telefono, status, created_at, updated_at
		FROM empresas WHERE rut = $1`
	empresa, err := scanEmpresa(r.pool.QueryRow(ctx, query, rut))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get empresa by RUT: %w", err)
	}
	return empresa, nil
}

// List devuelve empresas con paginación.
func (r *EmpresaRepo) List(ctx context.Context, limit, offset int) ([]*entity.Empresa, error) {
	query := `
		SELECT id, rut, razon_social, giro, direccion, comuna, email, telefono, status, created_at, updated_at
		FROM empresas ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list empresas: %w", err)
	}
	defer rows.Close()

	var list []*entity.Empresa
	for rows.Next() {
		empresa, err := scanEmpresa(rows)
		if err != nil {
			return nil, fmt.Errorf("scan empresa: %w", err)
		}
		list = append(list, empresa)
	}
	return list, rows.Err()
}

// Update actualiza una empresa existente.
func (r *EmpresaRepo) Update(ctx context.Context, empresa *entity.Empresa) error {
	query := `
		UPDATE empresas
		SET razon_social = $2, giro = $3, direccion = $4, comuna = $5,
		    email = $6, telefono = $7, status = $8, updated_at = $9
		WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query,
		empresa.ID, empresa.RazonSocial, empresa.Giro, empresa.Direccion,
		empresa.Comuna, empresa.Email, empresa.Telefono, empresa.Status,
		empresa.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update empresa: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanEmpresa(row pgxScanner) (*entity.Empresa, error) {
	var e entity.Empresa
	err := row.Scan(
		&e.ID, &e.RUT, &e.RazonSocial, &e.Giro, &e.Direccion, &e.Comuna,
		&e.Email, &e.Telefono, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
