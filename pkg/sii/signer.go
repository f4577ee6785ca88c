// Package sii: interfaz para firma digital de documentos XML (XMLDSIG, SII).

package sii

import "crypto/tls"

// Signer firma el XML de un DTE y devuelve el XML con la firma inyectada como
// último hijo del nodo DTE.
type Signer interface {
	// Sign toma el XML del documento (sin firma) y el certificado con llave
	// privada, y retorna el XML con el nodo Signature incluido.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
