package sii

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	pkgsii "github.com/jhoicas/Facturacion-api/pkg/sii"
)

// ── Constantes de ambiente ────────────────────────────────────────────────────

const (
	uploadURLCert = "https://maullin.sii.cl/cgi_dte/UPL/DTEUpload"
	uploadURLProd = "https://palena.sii.cl/cgi_dte/UPL/DTEUpload"

	estadoURLCert = "https://maullin.sii.cl/DTEWS/QueryEstUp.jws"
	estadoURLProd = "https://palena.sii.cl/DTEWS/QueryEstUp.jws"
)

// ── Puerto (interfaz) ─────────────────────────────────────────────────────────

// EnvioResult resultado de la entrega de un DTE al SII.
type EnvioResult struct {
	TrackID string // identificador de seguimiento asignado por el SII
	Glosa   string // mensaje de recepción (puede ser vacío)
}

// EstadoResult resultado de la consulta de estado de un envío.
type EstadoResult struct {
	Estado string // REC, EPR, RCH, RPR (ver pkg/sii)
	Glosa  string // explicación devuelta por el SII
}

// Gateway define el puerto de salida hacia el SII: envío de documentos y
// consulta de estado por track id. La implementación concreta usa HTTP; para
// tests se inyecta un fake.
type Gateway interface {
	// Enviar entrega el XML firmado del DTE al SII y retorna el track id.
	// env debe ser "cert" o "prod"; determina el endpoint.
	Enviar(ctx context.Context, rutEmisor string, xmlFirmado []byte, env string) (*EnvioResult, error)

	// ConsultarEstado consulta el estado de un envío previo por su track id.
	ConsultarEstado(ctx context.Context, rutEmisor, trackID, env string) (*EstadoResult, error)
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// HTTPClient implementa Gateway contra los endpoints de upload y consulta del
// SII. Usa net/http de la stdlib; el contrato observable es únicamente el
// track id y el estado/glosa (el protocolo exacto del SII queda encapsulado).
type HTTPClient struct {
	httpClient *http.Client
}

// NewHTTPClient construye el cliente con un timeout de red generoso (60 s):
// el SII puede tardar varios segundos en responder un upload.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// recepcionUpload respuesta XML del endpoint de upload.
type recepcionUpload struct {
	XMLName xml.Name `xml:"RECEPCIONDTE"`
	Status  string   `xml:"STATUS"`
	TrackID string   `xml:"TRACKID"`
	Detalle string   `xml:"DETALLE"`
}

// respuestaEstado respuesta XML de la consulta de estado de envío.
type respuestaEstado struct {
	XMLName xml.Name `xml:"RESP_HDR"`
	Estado  string   `xml:"ESTADO"`
	Glosa   string   `xml:"GLOSA"`
	TrackID string   `xml:"TRACKID"`
}

// Enviar sube el XML firmado al SII (multipart) y parsea la recepción.
func (c *HTTPClient) Enviar(ctx context.Context, rutEmisor string, xmlFirmado []byte, env string) (*EnvioResult, error) {
	url, err := uploadURL(env)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("rutSends", rutEmisor)
	_ = w.WriteField("rutCompany", rutEmisor)
	part, err := w.CreateFormFile("archivo", "envio_dte.xml")
	if err != nil {
		return nil, fmt.Errorf("sii: armar multipart: %w", err)
	}
	if _, err := part.Write(xmlFirmado); err != nil {
		return nil, fmt.Errorf("sii: escribir archivo: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sii: cerrar multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("sii: crear request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("User-Agent", "Mozilla/4.0 (compatible; PROG 1.0; Facturacion)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sii: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sii: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("sii: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sii: upload respondió HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var rec recepcionUpload
	if err := xml.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("sii: respuesta de upload no parseable: %s", string(raw))
	}
	// STATUS "0" = envío recibido; cualquier otro código es rechazo inmediato.
	if rec.Status != "0" {
		return nil, fmt.Errorf("sii: upload rechazado (status %s): %s", rec.Status, rec.Detalle)
	}
	if rec.TrackID == "" {
		return nil, fmt.Errorf("sii: recepción sin track id: %s", string(raw))
	}
	return &EnvioResult{TrackID: rec.TrackID, Glosa: rec.Detalle}, nil
}

// ConsultarEstado consulta el estado del envío identificado por trackID.
func (c *HTTPClient) ConsultarEstado(ctx context.Context, rutEmisor, trackID, env string) (*EstadoResult, error) {
	url, err := estadoURL(env)
	if err != nil {
		return nil, err
	}
	url = fmt.Sprintf("%s?rut=%s&trackid=%s", url, rutEmisor, trackID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("sii: crear request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sii: timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sii: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("sii: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sii: consulta respondió HTTP %d: %s", resp.StatusCode, string(raw))
	}

	var est respuestaEstado
	if err := xml.Unmarshal(raw, &est); err != nil {
		return nil, fmt.Errorf("sii: respuesta de estado no parseable: %s", string(raw))
	}
	if est.Estado == "" {
		return nil, fmt.Errorf("sii: consulta sin estado: %s", string(raw))
	}
	return &EstadoResult{Estado: est.Estado, Glosa: est.Glosa}, nil
}

func uploadURL(env string) (string, error) {
	switch env {
	case pkgsii.AmbienteProduccion:
		return uploadURLProd, nil
	case pkgsii.AmbienteCertificacion:
		return uploadURLCert, nil
	default:
		return "", fmt.Errorf("sii: ambiente desconocido %q (usar 'cert' o 'prod')", env)
	}
}

func estadoURL(env string) (string, error) {
	switch env {
	case pkgsii.AmbienteProduccion:
		return estadoURLProd, nil
	case pkgsii.AmbienteCertificacion:
		return estadoURLCert, nil
	default:
		return "", fmt.Errorf("sii: ambiente desconocido %q (usar 'cert' o 'prod')", env)
	}
}
