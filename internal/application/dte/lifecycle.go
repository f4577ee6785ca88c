package dte

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain"
	domaindte "github.com/jhoicas/Facturacion-api/internal/domain/dte"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
	infrasii "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii"
	siisigner "github.com/jhoicas/Facturacion-api/internal/infrastructure/sii/signer"
	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// envioTimeout límite de la llamada de red al SII por intento de envío.
const envioTimeout = 60 * time.Second

// Editar modifica un borrador (solo PENDIENTE). Reemplaza receptor, fecha y
// líneas según venga en el request, recalcula totales y registra un evento de
// edición con el resumen de lo que cambió. Todo en una transacción.
func (uc *DocumentoUseCase) Editar(ctx context.Context, empresaID, id, usuario string, in dto.EditDocumentoRequest) (*dto.DocumentoResponse, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	// La tabla de transiciones es la única autoridad sobre editabilidad.
	if _, err := domaindte.Transicionar(doc.Estado, domaindte.EventoEditar); err != nil {
		return nil, err
	}

	var cambios []string

	if in.RUTReceptor != "" {
		if !pkgsii.ValidarRUT(in.RUTReceptor) {
			return nil, &domain.RUTInvalidoError{Campo: "rut_receptor", RUT: in.RUTReceptor}
		}
		doc.RUTReceptor = pkgsii.FormatearRUTPlano(in.RUTReceptor)
		cambios = append(cambios, "receptor")
	}
	if in.RazonSocialReceptor != "" {
		doc.RazonSocialReceptor = in.RazonSocialReceptor
		cambios = append(cambios, "razon_social_receptor")
	}
	if in.GiroReceptor != "" {
		doc.GiroReceptor = in.GiroReceptor
		cambios = append(cambios, "giro_receptor")
	}
	if in.FechaEmision != "" {
		fecha, err := parseFecha(in.FechaEmision)
		if err != nil {
			return nil, err
		}
		doc.FechaEmision = fecha
		cambios = append(cambios, "fecha_emision")
	}

	detalles, err := uc.docRepo.GetDetalles(ctx, id)
	if err != nil {
		return nil, err
	}
	reemplazaItems := len(in.Items) > 0
	if reemplazaItems {
		detalles, err = itemsToDetalles(in.Items)
		if err != nil {
			return nil, err
		}
		cambios = append(cambios, fmt.Sprintf("items (%d líneas)", len(detalles)))
	}

	totales, err := domaindte.CalcularTotales(detalles)
	if err != nil {
		return nil, err
	}
	doc.MontoNeto = totales.Neto
	doc.MontoExento = totales.Exento
	doc.MontoIVA = totales.IVA
	doc.MontoTotal = totales.Total
	doc.UpdatedAt = time.Now()

	if len(cambios) == 0 {
		return nil, fmt.Errorf("nada que editar: %w", domain.ErrInvalidInput)
	}

	err = uc.txRunner.RunDocumento(ctx, func(docRepo repository.DocumentoRepository) error {
		if err := docRepo.Update(ctx, doc); err != nil {
			return err
		}
		if reemplazaItems {
			if err := docRepo.ReplaceDetalles(ctx, id, detalles); err != nil {
				return err
			}
		}
		return docRepo.AppendEvento(ctx, &entity.EventoDocumento{
			DocumentoID: id,
			Fecha:       doc.UpdatedAt,
			Estado:      entity.EstadoPendiente,
			Detalle:     "edición: " + strings.Join(cambios, ", "),
			Usuario:     usuario,
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, doc, detalles)
}

// Enviar firma y entrega el documento al SII. Transiciones posibles:
//
//	PENDIENTE|RECHAZADO|ERROR ── enviar ──▶ ENVIADO   (track id nuevo)
//	PENDIENTE|RECHAZADO|ERROR ── falla_envio ──▶ ERROR
//
// Cualquier falla de generación, firma o red deja el documento en ERROR con
// su evento, y retorna GatewayError; el documento nunca queda en un estado
// intermedio. Los envíos del mismo documento se serializan con un lock por
// ID: el segundo envío concurrente observa el estado que dejó el primero.
func (uc *DocumentoUseCase) Enviar(ctx context.Context, empresaID, id, usuario string) (*dto.DocumentoResponse, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	if _, err := domaindte.Transicionar(doc.Estado, domaindte.EventoEnviar); err != nil {
		return nil, err
	}

	detalles, err := uc.docRepo.GetDetalles(ctx, id)
	if err != nil {
		return nil, err
	}

	// Recomputar totales desde las líneas antes de firmar: el XML siempre
	// sale con montos derivados, aunque la cabecera persistida divergiera.
	totales, err := domaindte.CalcularTotales(detalles)
	if err != nil {
		return nil, err
	}
	doc.MontoNeto = totales.Neto
	doc.MontoExento = totales.Exento
	doc.MontoIVA = totales.IVA
	doc.MontoTotal = totales.Total

	trackAnterior := doc.TrackID

	xmlFirmado, err := uc.generarXMLFirmado(doc, detalles)
	if err != nil {
		return uc.registrarFalla(ctx, doc, usuario, "generacion", err)
	}

	var trackID, glosa string
	if uc.siiConfig.Ambiente == pkgsii.AmbienteDev {
		// Modo desarrollo: no se llama al SII, se simula la recepción.
		trackID = fmt.Sprintf("DEV-%d", time.Now().UnixNano())
		glosa = "envío simulado (ambiente dev)"
		uc.log.Info().Str("documento_id", id).Str("track_id", trackID).Msg("envío simulado")
	} else {
		if uc.gateway == nil {
			return uc.registrarFalla(ctx, doc, usuario, "config",
				fmt.Errorf("gateway SII no configurado para ambiente %q", uc.siiConfig.Ambiente))
		}
		envioCtx, cancel := context.WithTimeout(ctx, envioTimeout)
		defer cancel()
		result, err := uc.gateway.Enviar(envioCtx, doc.RUTEmisor, xmlFirmado, uc.siiConfig.Ambiente)
		if err != nil {
			return uc.registrarFalla(ctx, doc, usuario, "envio", err)
		}
		trackID = result.TrackID
		glosa = result.Glosa
	}

	detalle := fmt.Sprintf("enviado al SII, track id %s", trackID)
	if trackAnterior != "" {
		detalle += fmt.Sprintf(" (reintento, track id anterior %s)", trackAnterior)
	}

	doc.Estado = entity.EstadoEnviado
	doc.TrackID = trackID
	doc.GlosaSII = glosa
	doc.XML = string(xmlFirmado)
	doc.UpdatedAt = time.Now()

	// La respuesta del SII ya se recibió: persistir aunque el caller haya
	// cancelado el request mientras esperábamos.
	persistCtx := context.WithoutCancel(ctx)
	err = uc.txRunner.RunDocumento(persistCtx, func(docRepo repository.DocumentoRepository) error {
		if err := docRepo.Update(persistCtx, doc); err != nil {
			return err
		}
		return docRepo.AppendEvento(persistCtx, &entity.EventoDocumento{
			DocumentoID: id,
			Fecha:       doc.UpdatedAt,
			Estado:      entity.EstadoEnviado,
			Detalle:     detalle,
			Usuario:     usuario,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("documento_id", id).
		Str("track_id", trackID).
		Msg("documento enviado al SII")

	return uc.toResponse(persistCtx, doc, detalles)
}

// ConsultarEstado consulta al SII el estado del envío y aplica la transición
// que corresponda:
//
//	EPR, RPR → ACEPTADO     RCH → RECHAZADO     REC → sigue ENVIADO
//
// Si el documento no está en ENVIADO devuelve el estado actual sin consultar.
func (uc *DocumentoUseCase) ConsultarEstado(ctx context.Context, empresaID, id, usuario string) (*dto.EstadoSIIResponse, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	if doc.Estado != entity.EstadoEnviado || doc.TrackID == "" {
		return estadoResponse(doc), nil
	}

	var estadoSII, glosa string
	if uc.siiConfig.Ambiente == pkgsii.AmbienteDev {
		estadoSII, glosa = pkgsii.EstadoSIIAceptado, "aceptado (simulado, ambiente dev)"
	} else {
		if uc.gateway == nil {
			return nil, &domain.GatewayError{Operacion: "consulta", Detalle: "gateway SII no configurado"}
		}
		consultaCtx, cancel := context.WithTimeout(ctx, envioTimeout)
		defer cancel()
		result, err := uc.gateway.ConsultarEstado(consultaCtx, doc.RUTEmisor, doc.TrackID, uc.siiConfig.Ambiente)
		if err != nil {
			// La consulta no muta el ciclo de vida: una falla aquí no lleva
			// el documento a ERROR, solo se reporta.
			return nil, &domain.GatewayError{Operacion: "consulta", Detalle: err.Error(), Causa: err}
		}
		estadoSII, glosa = result.Estado, result.Glosa
	}

	var evento domaindte.Evento
	switch estadoSII {
	case pkgsii.EstadoSIIAceptado, pkgsii.EstadoSIIReparo:
		evento = domaindte.EventoAceptar
	case pkgsii.EstadoSIIRechazado:
		evento = domaindte.EventoRechazar
	default:
		// REC u otro estado intermedio: aún en proceso.
		doc.GlosaSII = glosa
		return estadoResponse(doc), nil
	}

	siguiente, err := domaindte.Transicionar(doc.Estado, evento)
	if err != nil {
		return nil, err
	}
	doc.Estado = siguiente
	doc.GlosaSII = glosa
	doc.UpdatedAt = time.Now()

	persistCtx := context.WithoutCancel(ctx)
	err = uc.txRunner.RunDocumento(persistCtx, func(docRepo repository.DocumentoRepository) error {
		if err := docRepo.Update(persistCtx, doc); err != nil {
			return err
		}
		return docRepo.AppendEvento(persistCtx, &entity.EventoDocumento{
			DocumentoID: id,
			Fecha:       doc.UpdatedAt,
			Estado:      siguiente,
			Detalle:     fmt.Sprintf("respuesta SII %s: %s", estadoSII, glosa),
			Usuario:     usuario,
		})
	})
	if err != nil {
		return nil, err
	}
	return estadoResponse(doc), nil
}

// Anular anula administrativamente un documento ACEPTADO. El documento queda
// en ANULADO (terminal); la nota de crédito que lo respalda ante el SII es un
// documento aparte.
func (uc *DocumentoUseCase) Anular(ctx context.Context, empresaID, id, usuario, motivo string) (*dto.DocumentoResponse, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return nil, err
	}
	siguiente, err := domaindte.Transicionar(doc.Estado, domaindte.EventoAnular)
	if err != nil {
		return nil, err
	}
	doc.Estado = siguiente
	doc.UpdatedAt = time.Now()

	detalle := "documento anulado"
	if motivo != "" {
		detalle += ": " + motivo
	}
	err = uc.txRunner.RunDocumento(ctx, func(docRepo repository.DocumentoRepository) error {
		if err := docRepo.Update(ctx, doc); err != nil {
			return err
		}
		return docRepo.AppendEvento(ctx, &entity.EventoDocumento{
			DocumentoID: id,
			Fecha:       doc.UpdatedAt,
			Estado:      siguiente,
			Detalle:     detalle,
			Usuario:     usuario,
		})
	})
	if err != nil {
		return nil, err
	}

	detalles, err := uc.docRepo.GetDetalles(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, doc, detalles)
}

// Eliminar borra físicamente un borrador (solo PENDIENTE): cabecera, líneas
// e historial. Un documento que ya tocó al SII nunca se elimina, se anula.
func (uc *DocumentoUseCase) Eliminar(ctx context.Context, empresaID, id string) error {
	unlock := uc.locks.lock(id)
	defer unlock()

	doc, err := uc.cargarDocumento(ctx, empresaID, id)
	if err != nil {
		return err
	}
	if _, err := domaindte.Transicionar(doc.Estado, domaindte.EventoEliminar); err != nil {
		return err
	}
	return uc.txRunner.RunDocumento(ctx, func(docRepo repository.DocumentoRepository) error {
		return docRepo.Delete(ctx, id)
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// registrarFalla absorbe una falla de generación/firma/red: transiciona a
// ERROR, persiste el evento y retorna GatewayError con la causa.
func (uc *DocumentoUseCase) registrarFalla(ctx context.Context, doc *entity.DocumentoTributario, usuario, operacion string, causa error) (*dto.DocumentoResponse, error) {
	siguiente, trErr := domaindte.Transicionar(doc.Estado, domaindte.EventoFallaEnvio)
	if trErr != nil {
		// No debería ocurrir: todo estado que permite enviar permite falla_envio.
		return nil, trErr
	}
	doc.Estado = siguiente
	doc.GlosaSII = causa.Error()
	doc.UpdatedAt = time.Now()

	persistCtx := context.WithoutCancel(ctx)
	err := uc.txRunner.RunDocumento(persistCtx, func(docRepo repository.DocumentoRepository) error {
		if err := docRepo.Update(persistCtx, doc); err != nil {
			return err
		}
		return docRepo.AppendEvento(persistCtx, &entity.EventoDocumento{
			DocumentoID: doc.ID,
			Fecha:       doc.UpdatedAt,
			Estado:      siguiente,
			Detalle:     fmt.Sprintf("falla de %s: %s", operacion, causa.Error()),
			Usuario:     usuario,
		})
	})
	if err != nil {
		uc.log.Error().Err(err).Str("documento_id", doc.ID).Msg("no se pudo persistir el estado ERROR")
	}

	uc.log.Warn().
		Str("documento_id", doc.ID).
		Str("operacion", operacion).
		Err(causa).
		Msg("envío al SII fallido, documento en ERROR")

	return nil, &domain.GatewayError{Operacion: operacion, Detalle: causa.Error(), Causa: causa}
}

// generarXMLFirmado construye el XML del DTE y lo firma con el certificado
// configurado. Con signer nil o en ambiente dev sin certificado se retorna
// el XML sin firma.
func (uc *DocumentoUseCase) generarXMLFirmado(doc *entity.DocumentoTributario, detalles []entity.DetalleDocumento) ([]byte, error) {
	xmlBytes, err := uc.xmlBuilder.Build(&infrasii.DTEBuildContext{
		Documento: doc,
		Detalles:  detalles,
	})
	if err != nil {
		return nil, fmt.Errorf("generar XML: %w", err)
	}
	if uc.signer == nil {
		return xmlBytes, nil
	}

	cert, err := uc.cargarCertificado()
	if err != nil {
		if uc.siiConfig.Ambiente == pkgsii.AmbienteDev {
			return xmlBytes, nil
		}
		return nil, err
	}
	firmado, err := uc.signer.Sign(xmlBytes, cert)
	if err != nil {
		return nil, fmt.Errorf("firmar XML: %w", err)
	}
	return firmado, nil
}

func (uc *DocumentoUseCase) cargarCertificado() (tls.Certificate, error) {
	cfg := uc.siiConfig
	if cfg.CertPath == "" {
		return tls.Certificate{}, fmt.Errorf("SII_CERT_PATH no configurado")
	}
	lower := strings.ToLower(cfg.CertPath)
	var cert tls.Certificate
	var err error
	if strings.HasSuffix(lower, ".p12") || strings.HasSuffix(lower, ".pfx") {
		cert, err = siisigner.LoadFromP12(cfg.CertPath, cfg.CertPassword)
	} else {
		cert, err = siisigner.LoadFromPEM(cfg.CertPath, cfg.CertKeyPath)
	}
	if err != nil {
		return tls.Certificate{}, err
	}
	if len(cert.Certificate) == 0 || cert.PrivateKey == nil {
		return tls.Certificate{}, fmt.Errorf("certificado vacío: verifica SII_CERT_PATH y SII_CERT_PASSWORD")
	}
	return cert, nil
}

func estadoResponse(doc *entity.DocumentoTributario) *dto.EstadoSIIResponse {
	return &dto.EstadoSIIResponse{
		ID:       doc.ID,
		Estado:   doc.Estado,
		TrackID:  doc.TrackID,
		GlosaSII: doc.GlosaSII,
	}
}
