package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appdte "github.com/jhoicas/Facturacion-api/internal/application/dte"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// Ensure TxRunner implements appdte.TxRunner.
var _ appdte.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunEmision inicia una transacción con los repos de documentos y CAF atados
// a la tx, y hace Commit o Rollback. Es el camino de la emisión: asignación
// de folio e inserción del documento deben ser atómicas.
func (r *TxRunner) RunEmision(ctx context.Context, fn func(
	docRepo repository.DocumentoRepository,
	cafRepo repository.CAFRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	docRepo := NewDocumentoRepository(tx)
	cafRepo := NewCAFRepository(tx)

	if err := fn(docRepo, cafRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunDocumento inicia una transacción solo con el repo de documentos (edición
// y eliminación de borradores: cabecera, detalles y evento en un commit).
func (r *TxRunner) RunDocumento(ctx context.Context, fn func(
	docRepo repository.DocumentoRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewDocumentoRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
