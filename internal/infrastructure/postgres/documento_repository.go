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

var _ repository.DocumentoRepository = (*DocumentoRepo)(nil)

// DocumentoRepo implementación de DocumentoRepository (usable con pool o tx).
type DocumentoRepo struct {
	q Querier
}

// NewDocumentoRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentoRepository(q Querier) *DocumentoRepo {
	return &DocumentoRepo{q: q}
}

const columnasDocumento = `
	id, empresa_id, tipo_dte, folio,
	rut_emisor, razon_social_emisor, giro_emisor,
	rut_receptor, razon_social_receptor, giro_receptor,
	fecha_emision, monto_neto, monto_exento, monto_iva, monto_total,
	estado, track_id, glosa_sii, xml_firmado, created_at, updated_at`

// Create persiste la cabecera del documento. La constraint única
// (empresa_id, tipo_dte, folio) evita folios duplicados por tipo.
func (r *DocumentoRepo) Create(ctx context.Context, doc *entity.DocumentoTributario) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documentos (` + columnasDocumento + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.EmpresaID, doc.TipoDTE, doc.Folio,
		doc.RUTEmisor, doc.RazonSocialEmisor, doc.GiroEmisor,
		doc.RUTReceptor, doc.RazonSocialReceptor, doc.GiroReceptor,
		doc.FechaEmision, doc.MontoNeto, doc.MontoExento, doc.MontoIVA, doc.MontoTotal,
		doc.Estado, nullIfEmpty(doc.TrackID), nullIfEmpty(doc.GlosaSII), nullIfEmpty(doc.XML),
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("folio %d ya emitido para tipo %s: %w", doc.Folio, doc.TipoDTE, domain.ErrConflict)
		}
		return fmt.Errorf("insert documento: %w", err)
	}
	return nil
}

// CreateDetalle persiste una línea de detalle.
func (r *DocumentoRepo) CreateDetalle(ctx context.Context, detalle *entity.DetalleDocumento) error {
	if detalle.ID == "" {
		detalle.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documento_detalles
			(id, documento_id, numero_linea, descripcion, cantidad, precio_unitario, descuento, exento, monto_item)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		detalle.ID, detalle.DocumentoID, detalle.NumeroLinea, detalle.Descripcion,
		detalle.Cantidad, detalle.PrecioUnitario, detalle.Descuento, detalle.Exento, detalle.MontoItem,
	)
	if err != nil {
		return fmt.Errorf("insert detalle: %w", err)
	}
	if err := r.insertAdicionales(ctx, detalle); err != nil {
		return err
	}
	return nil
}

func (r *DocumentoRepo) insertAdicionales(ctx context.Context, detalle *entity.DetalleDocumento) error {
	for _, imp := range detalle.Adicionales {
		_, err := r.q.Exec(ctx, `
			INSERT INTO detalle_impuestos_adicionales (id, detalle_id, codigo, tasa, monto)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), detalle.ID, imp.Codigo, imp.Tasa, imp.Monto,
		)
		if err != nil {
			return fmt.Errorf("insert impuesto adicional: %w", err)
		}
	}
	return nil
}

// Update actualiza cabecera y campos SII del documento.
func (r *DocumentoRepo) Update(ctx context.Context, doc *entity.DocumentoTributario) error {
	query := `
		UPDATE documentos
		SET rut_receptor          = $2,
		    razon_social_receptor = $3,
		    giro_receptor         = $4,
		    fecha_emision         = $5,
		    monto_neto            = $6,
		    monto_exento          = $7,
		    monto_iva             = $8,
		    monto_total           = $9,
		    estado                = $10,
		    track_id              = COALESCE($11, track_id),
		    glosa_sii             = COALESCE($12, glosa_sii),
		    xml_firmado           = COALESCE($13, xml_firmado),
		    updated_at            = $14
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		doc.ID,
		doc.RUTReceptor, doc.RazonSocialReceptor, doc.GiroReceptor,
		doc.FechaEmision,
		doc.MontoNeto, doc.MontoExento, doc.MontoIVA, doc.MontoTotal,
		doc.Estado,
		nullIfEmpty(doc.TrackID), nullIfEmpty(doc.GlosaSII), nullIfEmpty(doc.XML),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update documento: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un documento completo por ID. Devuelve nil, nil si no existe.
func (r *DocumentoRepo) GetByID(ctx context.Context, id string) (*entity.DocumentoTributario, error) {
	query := `SELECT ` + columnasDocumento + ` FROM documentos WHERE id = $1`
	doc, err := scanDocumento(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get documento: %w", err)
	}
	return doc, nil
}

// GetDetalles obtiene todas las líneas del documento en orden.
func (r *DocumentoRepo) GetDetalles(ctx context.Context, documentoID string) ([]entity.DetalleDocumento, error) {
	query := `
		SELECT id, documento_id, numero_linea, descripcion, cantidad, precio_unitario, descuento, exento, monto_item
		FROM documento_detalles WHERE documento_id = $1 ORDER BY numero_linea`
	rows, err := r.q.Query(ctx, query, documentoID)
	if err != nil {
		return nil, fmt.Errorf("list detalles: %w", err)
	}
	defer rows.Close()
	var list []entity.DetalleDocumento
	for rows.Next() {
		var d entity.DetalleDocumento
		if err := rows.Scan(&d.ID, &d.DocumentoID, &d.NumeroLinea, &d.Descripcion,
			&d.Cantidad, &d.PrecioUnitario, &d.Descuento, &d.Exento, &d.MontoItem); err != nil {
			return nil, fmt.Errorf("scan detalle: %w", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		adicionales, err := r.getAdicionales(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		list[i].Adicionales = adicionales
	}
	return list, nil
}

func (r *DocumentoRepo) getAdicionales(ctx context.Context, detalleID string) ([]entity.ImpuestoAdicional, error) {
	rows, err := r.q.Query(ctx, `
		SELECT codigo, tasa, monto FROM detalle_impuestos_adicionales
		WHERE detalle_id = $1 ORDER BY codigo`, detalleID)
	if err != nil {
		return nil, fmt.Errorf("list impuestos adicionales: %w", err)
	}
	defer rows.Close()
	var list []entity.ImpuestoAdicional
	for rows.Next() {
		var imp entity.ImpuestoAdicional
		if err := rows.Scan(&imp.Codigo, &imp.Tasa, &imp.Monto); err != nil {
			return nil, fmt.Errorf("scan impuesto adicional: %w", err)
		}
		list = append(list, imp)
	}
	return list, rows.Err()
}

// ReplaceDetalles reemplaza todas las líneas del documento (edición de borrador).
func (r *DocumentoRepo) ReplaceDetalles(ctx context.Context, documentoID string, detalles []entity.DetalleDocumento) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM detalle_impuestos_adicionales
		WHERE detalle_id IN (SELECT id FROM documento_detalles WHERE documento_id = $1)`, documentoID)
	if err != nil {
		return fmt.Errorf("delete impuestos adicionales: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM documento_detalles WHERE documento_id = $1`, documentoID); err != nil {
		return fmt.Errorf("delete detalles: %w", err)
	}
	for i := range detalles {
		detalles[i].DocumentoID = documentoID
		if err := r.CreateDetalle(ctx, &detalles[i]); err != nil {
			return err
		}
	}
	return nil
}

// AppendEvento agrega un evento al historial (append-only).
func (r *DocumentoRepo) AppendEvento(ctx context.Context, evento *entity.EventoDocumento) error {
	if evento.ID == "" {
		evento.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO documento_eventos (id, documento_id, fecha, estado, detalle, usuario)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		evento.ID, evento.DocumentoID, evento.Fecha, evento.Estado, evento.Detalle, evento.Usuario,
	)
	if err != nil {
		return fmt.Errorf("insert evento: %w", err)
	}
	return nil
}

// GetEventos obtiene el historial completo en orden cronológico.
func (r *DocumentoRepo) GetEventos(ctx context.Context, documentoID string) ([]entity.EventoDocumento, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, documento_id, fecha, estado, detalle, usuario
		FROM documento_eventos WHERE documento_id = $1 ORDER BY fecha, id`, documentoID)
	if err != nil {
		return nil, fmt.Errorf("list eventos: %w", err)
	}
	defer rows.Close()
	var list []entity.EventoDocumento
	for rows.Next() {
		var e entity.EventoDocumento
		if err := rows.Scan(&e.ID, &e.DocumentoID, &e.Fecha, &e.Estado, &e.Detalle, &e.Usuario); err != nil {
			return nil, fmt.Errorf("scan evento: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Delete elimina el documento, sus detalles e historial. El guard de estado
// (solo PENDIENTE) lo aplica el caso de uso antes de llamar.
func (r *DocumentoRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM detalle_impuestos_adicionales
		WHERE detalle_id IN (SELECT id FROM documento_detalles WHERE documento_id = $1)`, id)
	if err != nil {
		return fmt.Errorf("delete impuestos adicionales: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM documento_detalles WHERE documento_id = $1`, id); err != nil {
		return fmt.Errorf("delete detalles: %w", err)
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM documento_eventos WHERE documento_id = $1`, id); err != nil {
		return fmt.Errorf("delete eventos: %w", err)
	}
	cmd, err := r.q.Exec(ctx, `DELETE FROM documentos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete documento: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List devuelve documentos de una empresa, opcionalmente filtrados por estado,
// del más reciente al más antiguo.
func (r *DocumentoRepo) List(ctx context.Context, empresaID, estado string, limit, offset int) ([]*entity.DocumentoTributario, error) {
	query := `SELECT ` + columnasDocumento + `
		FROM documentos
		WHERE empresa_id = $1 AND ($2 = '' OR estado = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(ctx, query, empresaID, estado, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documentos: %w", err)
	}
	defer rows.Close()
	var list []*entity.DocumentoTributario
	for rows.Next() {
		doc, err := scanDocumento(rows)
		if err != nil {
			return nil, fmt.Errorf("scan documento: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// CountPorEstado devuelve la cantidad de documentos por estado (dashboard).
func (r *DocumentoRepo) CountPorEstado(ctx context.Context, empresaID string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT estado, COUNT(*) FROM documentos WHERE empresa_id = $1 GROUP BY estado`, empresaID)
	if err != nil {
		return nil, fmt.Errorf("count por estado: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int64)
	for rows.Next() {
		var estado string
		var count int64
		if err := rows.Scan(&estado, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		result[estado] = count
	}
	return result, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar scanDocumento.
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanDocumento(row pgxScanner) (*entity.DocumentoTributario, error) {
	var doc entity.DocumentoTributario
	var trackID, glosa, xmlFirmado *string
	err := row.Scan(
		&doc.ID, &doc.EmpresaID, &doc.TipoDTE, &doc.Folio,
		&doc.RUTEmisor, &doc.RazonSocialEmisor, &doc.GiroEmisor,
		&doc.RUTReceptor, &doc.RazonSocialReceptor, &doc.GiroReceptor,
		&doc.FechaEmision, &doc.MontoNeto, &doc.MontoExento, &doc.MontoIVA, &doc.MontoTotal,
		&doc.Estado, &trackID, &glosa, &xmlFirmado,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.TrackID = derefStr(trackID)
	doc.GlosaSII = derefStr(glosa)
	doc.XML = derefStr(xmlFirmado)
	return &doc, nil
}
