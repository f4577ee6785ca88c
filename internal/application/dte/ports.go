package dte

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

// TxRunner ejecuta funciones dentro de una transacción de base de datos.
// La emisión necesita atomicidad entre la asignación de folio (CAF) y la
// inserción del documento; la edición entre cabecera, detalles y evento.
type TxRunner interface {
	RunEmision(ctx context.Context, fn func(
		docRepo repository.DocumentoRepository,
		cafRepo repository.CAFRepository,
	) error) error

	RunDocumento(ctx context.Context, fn func(
		docRepo repository.DocumentoRepository,
	) error) error
}

// PDFGenerator genera la representación gráfica de un DTE.
type PDFGenerator interface {
	GenerateDocumentoPDF(ctx context.Context, doc *entity.DocumentoTributario, detalles []entity.DetalleDocumento) ([]byte, error)
}

// SIIConfig configuración del envío al SII para los casos de uso.
type SIIConfig struct {
	Ambiente     string // cert, prod o dev (dev simula sin llamar al SII)
	CertPath     string // ruta al certificado .p12/.pfx o PEM
	CertKeyPath  string // ruta a la llave PEM (vacío si .p12 o PEM combinado)
	CertPassword string
}
