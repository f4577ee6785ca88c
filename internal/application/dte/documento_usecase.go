// Package dte contiene los casos de uso de emisión y ciclo de vida de los
// Documentos Tributarios Electrónicos: creación de borradores con folio CAF,
// edición, envío al SII, consulta de estado, anulación y eliminación.
package dte

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	domaindte "github.com/jhoicas/Facturacion-api/internal/domain/dte"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasii "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// DocumentoUseCase orquesta la emisión y el ciclo de vida de los DTE.
type DocumentoUseCase struct {
	txRunner    TxRunner
	docRepo     repository.DocumentoRepository
	cafRepo     repository.CAFRepository
	empresaRepo repository.EmpresaRepository
	clienteRepo repository.ClienteRepository
	xmlBuilder  *infrasii.XMLBuilderService
	signer      pkgsii.Signer
	gateway     infrasii.Gateway
	siiConfig   SIIConfig
	log         *logger.Logger
	locks       *documentoLocks
}

// NewDocumentoUseCase construye el caso de uso con todas sus dependencias.
// gateway puede ser nil: en ese caso solo funciona el ambiente dev.
func NewDocumentoUseCase(
	txRunner TxRunner,
	docRepo repository.DocumentoRepository,
	cafRepo repository.CAFRepository,
	empresaRepo repository.EmpresaRepository,
	clienteRepo repository.ClienteRepository,
	xmlBuilder *infrasii.XMLBuilderService,
	signer pkgsii.Signer,
	gateway infrasii.Gateway,
	siiConfig SIIConfig,
	log *logger.Logger,
) *DocumentoUseCase {
	return &DocumentoUseCase{
		txRunner:    txRunner,
		docRepo:     docRepo,
		cafRepo:     cafRepo,
		empresaRepo: empresaRepo,
		clienteRepo: clienteRepo,
		xmlBuilder:  xmlBuilder,
		signer:      signer,
		gateway:     gateway,
		siiConfig:   siiConfig,
		log:         log,
		locks:       newDocumentoLocks(),
	}
}

// Crear crea un documento en estado PENDIENTE con su primer evento de
// historial. Si el request no trae folio, se asigna el siguiente del CAF
// activo para el tipo, dentro de la misma transacción que inserta el
// documento (un folio nunca queda consumido sin documento).
func (uc *DocumentoUseCase) Crear(ctx context.Context, empresaID, usuario string, in dto.CreateDocumentoRequest) (*dto.DocumentoResponse, error) {
	if !pkgsii.TiposDTEValidos[in.Tipo] {
		return nil, fmt.Errorf("tipo de DTE %q no soportado: %w", in.Tipo, domain.ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("el documento requiere al menos un ítem: %w", domain.ErrInvalidInput)
	}
	if !pkgsii.ValidarRUT(in.RUTReceptor) {
		return nil, &domain.RUTInvalidoError{Campo: "rut_receptor", RUT: in.RUTReceptor}
	}

	empresa, err := uc.empresaRepo.GetByID(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	if empresa == nil {
		return nil, domain.ErrNotFound
	}

	fechaEmision, err := parseFecha(in.FechaEmision)
	if err != nil {
		return nil, err
	}

	detalles, err := itemsToDetalles(in.Items)
	if err != nil {
		return nil, err
	}
	totales, err := domaindte.CalcularTotales(detalles)
	if err != nil {
		return nil, err
	}

	// Si el receptor es un cliente registrado, completar razón social y giro.
	razonSocial, giro := in.RazonSocialReceptor, in.GiroReceptor
	if cliente, cErr := uc.clienteRepo.GetByEmpresaYRUT(ctx, empresaID, pkgsii.FormatearRUTPlano(in.RUTReceptor)); cErr == nil && cliente != nil {
		if razonSocial == "" {
			razonSocial = cliente.RazonSocial
		}
		if giro == "" {
			giro = cliente.Giro
		}
	}
	if razonSocial == "" {
		return nil, fmt.Errorf("razón social del receptor requerida: %w", domain.ErrInvalidInput)
	}

	now := time.Now()
	doc := &entity.DocumentoTributario{
		ID:                  uuid.New().String(),
		EmpresaID:           empresaID,
		TipoDTE:             in.Tipo,
		Folio:               in.Folio,
		RUTEmisor:           empresa.RUT,
		RazonSocialEmisor:   empresa.RazonSocial,
		GiroEmisor:          empresa.Giro,
		RUTReceptor:         pkgsii.FormatearRUTPlano(in.RUTReceptor),
		RazonSocialReceptor: razonSocial,
		GiroReceptor:        giro,
		FechaEmision:        fechaEmision,
		MontoNeto:           totales.Neto,
		MontoExento:         totales.Exento,
		MontoIVA:            totales.IVA,
		MontoTotal:          totales.Total,
		Estado:              entity.EstadoPendiente,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = uc.txRunner.RunEmision(ctx, func(
		docRepo repository.DocumentoRepository,
		cafRepo repository.CAFRepository,
	) error {
		if doc.Folio == 0 {
			caf, err := cafRepo.GetActivoByEmpresaYTipo(ctx, empresaID, in.Tipo)
			if err != nil {
				return err
			}
			if caf == nil {
				return fmt.Errorf("sin CAF activo para tipo %s: %w", in.Tipo, domain.ErrSinFolios)
			}
			folio := caf.SiguienteFolio()
			if folio == 0 {
				return fmt.Errorf("CAF %s agotado: %w", caf.ID, domain.ErrSinFolios)
			}
			if err := cafRepo.MarcarFolioUsado(ctx, caf.ID, folio); err != nil {
				return err
			}
			doc.Folio = folio
		}

		if err := docRepo.Create(ctx, doc); err != nil {
			return err
		}
		for i := range detalles {
			detalles[i].DocumentoID = doc.ID
			if err := docRepo.CreateDetalle(ctx, &detalles[i]); err != nil {
				return err
			}
		}
		return docRepo.AppendEvento(ctx, &entity.EventoDocumento{
			DocumentoID: doc.ID,
			Fecha:       now,
			Estado:      entity.EstadoPendiente,
			Detalle:     fmt.Sprintf("documento creado, tipo %s folio %d", doc.TipoDTE, doc.Folio),
			Usuario:     usuario,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("documento_id", doc.ID).
		Str("tipo", doc.TipoDTE).
		Int64("folio", doc.Folio).
		Msg("documento creado")

	return uc.toResponse(ctx, doc, detalles)
}

// Get obtiene un documento completo (cabecera, líneas e historial).
func (uc *DocumentoUseCase) Get(ctx context.Context, empresaID, id string) (*dto.DocumentoResponse, error) {
	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	detalles, err := uc.docRepo.GetDetalles(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, doc, detalles)
}

// List devuelve los documentos de la empresa, opcionalmente filtrados por
// estado, con metadatos de página.
func (uc *DocumentoUseCase) List(ctx context.Context, empresaID, estado string, page dto.PageRequest) ([]dto.DocumentoResponse, error) {
	page.DefaultPage()
	if estado != "" && !estadoConocido(estado) {
		return nil, fmt.Errorf("estado %q desconocido: %w", estado, domain.ErrInvalidInput)
	}
	docs, err := uc.docRepo.List(ctx, empresaID, estado, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DocumentoResponse, 0, len(docs))
	for _, doc := range docs {
		// Listado liviano: sin líneas ni historial.
		out = append(out, *documentoHeaderResponse(doc))
	}
	return out, nil
}

// PreviewTotales calcula los totales de una lista de ítems sin persistir
// nada. Es el mismo cálculo que usa la emisión.
func (uc *DocumentoUseCase) PreviewTotales(items []dto.ItemRequest) (*dto.TotalesResponse, error) {
	detalles, err := itemsToDetalles(items)
	if err != nil {
		return nil, err
	}
	totales, err := domaindte.CalcularTotales(detalles)
	if err != nil {
		return nil, err
	}
	return &dto.TotalesResponse{
		Neto:   totales.Neto,
		Exento: totales.Exento,
		IVA:    totales.IVA,
		Total:  totales.Total,
	}, nil
}

// Estadisticas devuelve el conteo de documentos por estado.
func (uc *DocumentoUseCase) Estadisticas(ctx context.Context, empresaID string) (*dto.EstadisticasResponse, error) {
	counts, err := uc.docRepo.CountPorEstado(ctx, empresaID)
	if err != nil {
		return nil, err
	}
	resp := &dto.EstadisticasResponse{
		Pendientes: counts[entity.EstadoPendiente],
		Enviados:   counts[entity.EstadoEnviado],
		Aceptados:  counts[entity.EstadoAceptado],
		Rechazados: counts[entity.EstadoRechazado],
		Error:      counts[entity.EstadoError],
		Anulados:   counts[entity.EstadoAnulado],
	}
	resp.Total = resp.Pendientes + resp.Enviados + resp.Aceptados + resp.Rechazados + resp.Error + resp.Anulados
	return resp, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// cargarDocumento obtiene el documento y verifica pertenencia a la empresa.
func (uc *DocumentoUseCase) cargarDocumento(ctx context.Context, empresaID, id string) (*entity.DocumentoTributario, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.EmpresaID != empresaID {
		return nil, domain.ErrForbidden
	}
	return doc, nil
}

func parseFecha(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	fecha, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha_emision %q inválida (usar YYYY-MM-DD): %w", s, domain.ErrInvalidInput)
	}
	return fecha, nil
}

// itemsToDetalles convierte los ítems del request en líneas de detalle con
// número de línea correlativo y monto por línea calculado.
func itemsToDetalles(items []dto.ItemRequest) ([]entity.DetalleDocumento, error) {
	detalles := make([]entity.DetalleDocumento, 0, len(items))
	for i, item := range items {
		adicionales := make([]entity.ImpuestoAdicional, 0, len(item.Adicionales))
		for _, a := range item.Adicionales {
			adicionales = append(adicionales, entity.ImpuestoAdicional{
				Codigo: a.Codigo,
				Tasa:   a.Tasa,
				Monto:  a.Monto,
			})
		}
		detalles = append(detalles, entity.DetalleDocumento{
			NumeroLinea:    i + 1,
			Descripcion:    item.Descripcion,
			Cantidad:       item.Cantidad,
			PrecioUnitario: item.PrecioUnitario,
			Descuento:      item.Descuento,
			Exento:         item.Exento,
			MontoItem:      domaindte.SubtotalLinea(item.Cantidad, item.PrecioUnitario, item.Descuento),
			Adicionales:    adicionales,
		})
	}
	return detalles, nil
}

func estadoConocido(estado string) bool {
	switch estado {
	case entity.EstadoPendiente, entity.EstadoEnviado, entity.EstadoAceptado,
		entity.EstadoRechazado, entity.EstadoError, entity.EstadoAnulado:
		return true
	}
	return false
}

// documentoHeaderResponse arma la respuesta solo con la cabecera.
func documentoHeaderResponse(doc *entity.DocumentoTributario) *dto.DocumentoResponse {
	return &dto.DocumentoResponse{
		ID:                  doc.ID,
		EmpresaID:           doc.EmpresaID,
		Tipo:                doc.TipoDTE,
		Folio:               doc.Folio,
		RUTEmisor:           pkgsii.FormatearRUT(doc.RUTEmisor),
		RazonSocialEmisor:   doc.RazonSocialEmisor,
		RUTReceptor:         pkgsii.FormatearRUT(doc.RUTReceptor),
		RazonSocialReceptor: doc.RazonSocialReceptor,
		FechaEmision:        doc.FechaEmision.Format("2006-01-02"),
		MontoNeto:           doc.MontoNeto,
		MontoExento:         doc.MontoExento,
		MontoIVA:            doc.MontoIVA,
		MontoTotal:          doc.MontoTotal,
		Estado:              doc.Estado,
		TrackID:             doc.TrackID,
		GlosaSII:            doc.GlosaSII,
	}
}

func (uc *DocumentoUseCase) toResponse(ctx context.Context, doc *entity.DocumentoTributario, detalles []entity.DetalleDocumento) (*dto.DocumentoResponse, error) {
	resp := documentoHeaderResponse(doc)

	resp.Items = make([]dto.ItemResponse, 0, len(detalles))
	for _, d := range detalles {
		adicionales := make([]dto.AdicionalRequest, 0, len(d.Adicionales))
		for _, a := range d.Adicionales {
			adicionales = append(adicionales, dto.AdicionalRequest{Codigo: a.Codigo, Tasa: a.Tasa, Monto: a.Monto})
		}
		resp.Items = append(resp.Items, dto.ItemResponse{
			Descripcion:    d.Descripcion,
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Descuento:      d.Descuento,
			Exento:         d.Exento,
			MontoItem:      d.MontoItem,
			Adicionales:    adicionales,
		})
	}

	eventos, err := uc.docRepo.GetEventos(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	resp.Historial = make([]dto.EventoResponse, 0, len(eventos))
	for _, e := range eventos {
		resp.Historial = append(resp.Historial, dto.EventoResponse{
			Fecha:   e.Fecha.Format(time.RFC3339),
			Estado:  e.Estado,
			Detalle: e.Detalle,
			Usuario: e.Usuario,
		})
	}
	return resp, nil
}
