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

var _ repository.ClienteRepository = (*ClienteRepo)(nil)

// ClienteRepo implementación del puerto ClienteRepository sobre PostgreSQL.
type ClienteRepo struct {
	pool *pgxpool.Pool
}

// NewClienteRepository construye el adaptador de persistencia para receptores.
func NewClienteRepository(pool *pgxpool.Pool) *ClienteRepo {
	return &ClienteRepo{pool: pool}
}

// Create persiste un nuevo cliente receptor.
func (r *ClienteRepo) Create(ctx context.Context, cliente *entity.Cliente) error {
	if cliente.ID == "" {
		cliente.ID = uuid.New().String()
	}
	query := `
		INSERT INTO clientes (id, empresa_id, rut, razon_social, giro, direccion, comuna, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		cliente.ID, cliente.EmpresaID, cliente.RUT, cliente.RazonSocial,
		cliente.Giro, cliente.Direccion, cliente.Comuna, cliente.Email,
		cliente.CreatedAt, cliente.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("cliente con RUT %s ya existe: %w", cliente.RUT, domain.ErrConflict)
		}
		return fmt.Errorf("insert cliente: %w", err)
	}
	return nil
}

// GetByID obtiene un cliente por ID. Devuelve nil, nil si no existe.
func (r *ClienteRepo) GetByID(ctx context.Context, id string) (*entity.Cliente, error) {
	query := `
		SELECT id, empresa_id, rut, razon_social, giro, direccion, comuna, email, created_at, updated_at
		FROM clientes WHERE id = $1`
	cliente, err := scanCliente(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cliente: %w", err)
	}
	return cliente, nil
}

// GetByEmpresaYRUT obtiene un cliente por empresa y RUT.
func (r *ClienteRepo) GetByEmpresaYRUT(ctx context.Context, empresaID, rut string) (*entity.Cliente, error) {
	query := `
		SELECT id, empresa_id, rut, razon_social, giro, direccion, comuna, email, created_at, updated_at
		FROM clientes WHERE empresa_id = $1 AND rut = $2`
	cliente, err := scanCliente(r.pool.QueryRow(ctx, query, empresaID, rut))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cliente by RUT: %w", err)
	}
	return cliente, nil
}

// ListByEmpresa lista clientes de una empresa con paginación.
func (r *ClienteRepo) ListByEmpresa(ctx context.Context, empresaID string, limit, offset int) ([]*entity.Cliente, error) {
	query := `
		SELECT id, empresa_id, rut, razon_social, giro, direccion, comuna, email, created_at, updated_at
		FROM clientes WHERE empresa_id = $1 ORDER BY razon_social LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, empresaID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clientes: %w", err)
	}
	defer rows.Close()

	var list []*entity.Cliente
	for rows.Next() {
		cliente, err := scanCliente(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cliente: %w", err)
		}
		list = append(list, cliente)
	}
	return list, rows.Err()
}

// Update actualiza un cliente existente.
func (r *ClienteRepo) Update(ctx context.Context, cliente *entity.Cliente) error {
	query := `
		UPDATE clientes
		SET razon_social = $2, giro = $3, direccion = $4, comuna = $5, email = $6, updated_at = $7
		WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query,
		cliente.ID, cliente.RazonSocial, cliente.Giro, cliente.Direccion,
		cliente.Comuna, cliente.Email, cliente.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update cliente: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanCliente(row pgxScanner) (*entity.Cliente, error) {
	var c entity.Cliente
	err := row.Scan(
		&c.ID, &c.EmpresaID, &c.RUT, &c.RazonSocial, &c.Giro,
		&c.Direccion, &c.Comuna, &c.Email, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
