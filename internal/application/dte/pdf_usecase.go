package dte

import (
	"context"
	"fmt"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// ArtefactoUseCase entrega los artefactos de un documento: la representación
// gráfica (PDF) y el XML firmado.
type ArtefactoUseCase struct {
	docRepo   repository.DocumentoRepository
	generator PDFGenerator
}

// NewArtefactoUseCase construye el caso de uso.
func NewArtefactoUseCase(docRepo repository.DocumentoRepository, generator PDFGenerator) *ArtefactoUseCase {
	return &ArtefactoUseCase{docRepo: docRepo, generator: generator}
}

// DownloadPDF genera la representación gráfica del documento.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el documento no existe.
//   - domain.ErrForbidden        si no pertenece a la empresa del token.
func (uc *ArtefactoUseCase) DownloadPDF(ctx context.Context, empresaID, documentoID string) (pdfBytes []byte, filename string, err error) {
	doc, err := uc.docRepo.GetByID(ctx, documentoID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}
	if doc.EmpresaID != empresaID {
		return nil, "", domain.ErrForbidden
	}

	detalles, err := uc.docRepo.GetDetalles(ctx, documentoID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener detalles: %w", err)
	}

	pdfBytes, err = uc.generator.GenerateDocumentoPDF(ctx, doc, detalles)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}
	filename = fmt.Sprintf("dte_%s_F%d.pdf", doc.TipoDTE, doc.Folio)
	return pdfBytes, filename, nil
}

// DownloadXML entrega el XML firmado del documento. Solo existe después del
// primer envío; un borrador retorna ErrInvalidInput.
func (uc *ArtefactoUseCase) DownloadXML(ctx context.Context, empresaID, documentoID string) (xmlBytes []byte, filename string, err error) {
	doc, err := uc.docRepo.GetByID(ctx, documentoID)
	if err != nil {
		return nil, "", fmt.Errorf("xml: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}
	if doc.EmpresaID != empresaID {
		return nil, "", domain.ErrForbidden
	}
	if doc.XML == "" {
		return nil, "", fmt.Errorf("%w: el documento aún no tiene XML firmado (no se ha enviado)", domain.ErrInvalidInput)
	}
	filename = fmt.Sprintf("dte_%s_F%d.xml", doc.TipoDTE, doc.Folio)
	return []byte(doc.XML), filename, nil
}
