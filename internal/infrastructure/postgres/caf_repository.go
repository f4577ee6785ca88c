package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.CAFRepository = (*CAFRepo)(nil)

// CAFRepo implementa CAFRepository sobre PostgreSQL (usable con pool o tx:
// la asignación de folio ocurre dentro de la transacción de emisión).
type CAFRepo struct {
	q Querier
}

// NewCAFRepository construye el repositorio. Pasar pool o tx (Querier).
func NewCAFRepository(q Querier) *CAFRepo {
	return &CAFRepo{q: q}
}

const columnasCAF = `
	id, empresa_id, tipo_dte, rango_desde, rango_hasta, ultimo_folio_usado,
	fecha_autorizacion, activo, created_at, updated_at`

func (r *CAFRepo) Create(ctx context.Context, caf *entity.CAF) error {
	if caf.ID == "" {
		caf.ID = uuid.New().String()
	}
	query := `
		INSERT INTO cafs (` + columnasCAF + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`
	_, err := r.q.Exec(ctx, query,
		caf.ID, caf.EmpresaID, caf.TipoDTE,
		caf.RangoDesde, caf.RangoHasta, caf.UltimoFolioUsado,
		caf.FechaAutorizacion, caf.Activo,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("ya existe un CAF activo para tipo %s: %w", caf.TipoDTE, domain.ErrConflict)
		}
		return fmt.Errorf("insert caf: %w", err)
	}
	return nil
}

func (r *CAFRepo) GetByID(ctx context.Context, id string) (*entity.CAF, error) {
	query := `SELECT ` + columnasCAF + ` FROM cafs WHERE id = $1`
	caf, err := scanCAF(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get caf: %w", err)
	}
	return caf, nil
}

// GetActivoByEmpresaYTipo es la consulta crítica del flujo de emisión.
// Bloquea la fila (FOR UPDATE) para serializar la asignación de folio cuando
// se llama dentro de una transacción. Devuelve nil, nil si no hay CAF activo.
func (r *CAFRepo) GetActivoByEmpresaYTipo(ctx context.Context, empresaID, tipoDTE string) (*entity.CAF, error) {
	query := `SELECT ` + columnasCAF + `
		FROM cafs
		WHERE empresa_id = $1 AND tipo_dte = $2 AND activo = true
		ORDER BY fecha_autorizacion DESC
		LIMIT 1
		FOR UPDATE`
	caf, err := scanCAF(r.q.QueryRow(ctx, query, empresaID, tipoDTE))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get caf activo: %w", err)
	}
	return caf, nil
}

func (r *CAFRepo) ListByEmpresa(ctx context.Context, empresaID string) ([]*entity.CAF, error) {
	query := `SELECT ` + columnasCAF + `
		FROM cafs WHERE empresa_id = $1 ORDER BY fecha_autorizacion DESC`
	rows, err := r.q.Query(ctx, query, empresaID)
	if err != nil {
		return nil, fmt.Errorf("list cafs: %w", err)
	}
	defer rows.Close()
	var list []*entity.CAF
	for rows.Next() {
		caf, err := scanCAF(rows)
		if err != nil {
			return nil, fmt.Errorf("scan caf: %w", err)
		}
		list = append(list, caf)
	}
	return list, rows.Err()
}

// MarcarFolioUsado registra el último folio consumido del rango. El WHERE
// sobre ultimo_folio_usado evita retroceder el contador ante carreras.
func (r *CAFRepo) MarcarFolioUsado(ctx context.Context, cafID string, folio int64) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE cafs SET ultimo_folio_usado = $2, updated_at = now()
		WHERE id = $1 AND ultimo_folio_usado < $2`, cafID, folio)
	if err != nil {
		return fmt.Errorf("marcar folio usado: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("folio %d ya consumido: %w", folio, domain.ErrConflict)
	}
	return nil
}

func (r *CAFRepo) Update(ctx context.Context, caf *entity.CAF) error {
	_, err := r.q.Exec(ctx, `
		UPDATE cafs
		SET rango_desde = $2, rango_hasta = $3, ultimo_folio_usado = $4,
		    fecha_autorizacion = $5, activo = $6, updated_at = now()
		WHERE id = $1`,
		caf.ID, caf.RangoDesde, caf.RangoHasta, caf.UltimoFolioUsado,
		caf.FechaAutorizacion, caf.Activo,
	)
	if err != nil {
		return fmt.Errorf("update caf: %w", err)
	}
	return nil
}

func scanCAF(row pgxScanner) (*entity.CAF, error) {
	var caf entity.CAF
	err := row.Scan(
		&caf.ID, &caf.EmpresaID, &caf.TipoDTE,
		&caf.RangoDesde, &caf.RangoHasta, &caf.UltimoFolioUsado,
		&caf.FechaAutorizacion, &caf.Activo, &caf.CreatedAt, &caf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &caf, nil
}
