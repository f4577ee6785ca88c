// Servicio de firma digital para DTE según el esquema xmldsignature_v10 del
// SII. Inserta <Signature> como hermano posterior de <Documento> dentro de
// <DTE>, con Reference al atributo ID del Documento.

package signer

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math/big"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/Facturacion-api/pkg/sii"
)

// DigitalSignatureService implementa la firma enveloped e inyecta el nodo en
// el XML del DTE.
type DigitalSignatureService struct{}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign implementa pkg/sii.Signer. Firma el <Documento> del DTE y agrega
// <Signature> dentro del elemento raíz <DTE>.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sii: XML vacío")
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sii: el certificado debe incluir llave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("sii: parsear certificado: %w", err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sii: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sii: documento sin raíz")
	}
	documento := root.SelectElement("Documento")
	if documento == nil {
		return nil, fmt.Errorf("sii: no se encontró <Documento>")
	}
	docID := documento.SelectAttrValue("ID", "")
	if docID == "" {
		return nil, fmt.Errorf("sii: <Documento> sin atributo ID")
	}

	// 1) Digest del Documento canonicalizado, Reference URI="#<ID>"
	docXML, err := serializeElement(documento)
	if err != nil {
		return nil, err
	}
	canonicalDoc, err := canonicalizeXML(docXML)
	if err != nil {
		canonicalDoc = docXML
	}
	docDigest := sha1.Sum(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado con RSA-SHA1
	signedInfoXML := s.buildSignedInfo(docID, docDigestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		canonicalSignedInfo = []byte(signedInfoXML)
	}
	signHash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA1, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("sii: firmar SignedInfo: %w", err)
	}
	signatureValueB64 := base64.StdEncoding.EncodeToString(signatureValue)

	// 3) KeyInfo: el SII pide KeyValue (módulo/exponente RSA) además del X509
	certB64 := base64.StdEncoding.EncodeToString(x509Cert.Raw)
	modulusB64 := base64.StdEncoding.EncodeToString(priv.PublicKey.N.Bytes())
	exponentB64 := base64.StdEncoding.EncodeToString(big.NewInt(int64(priv.PublicKey.E)).Bytes())

	signatureXML := s.buildFullSignature(signedInfoXML, signatureValueB64, modulusB64, exponentB64, certB64)

	// 4) Inyectar <Signature> después de <Documento>
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sii: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		root.AddChild(sigRoot)
	}
	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sii: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

func serializeElement(el *etree.Element) ([]byte, error) {
	tmp := etree.NewDocument()
	tmp.SetRoot(el.Copy())
	raw, err := tmp.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sii: serializar elemento: %w", err)
	}
	return raw, nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func (s *DigitalSignatureService) buildSignedInfo(docID, docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<SignedInfo xmlns="` + NamespaceDS + `">`)
	sb.WriteString(`<CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)
	sb.WriteString(`<Reference URI="#` + docID + `">`)
	sb.WriteString(`<Transforms><Transform Algorithm="` + TransformEnveloped + `"/></Transforms>`)
	sb.WriteString(`<DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<DigestValue>` + docDigestB64 + `</DigestValue>`)
	sb.WriteString(`</Reference>`)
	sb.WriteString(`</SignedInfo>`)
	return sb.String()
}

func (s *DigitalSignatureService) buildFullSignature(signedInfoXML, signatureValueB64, modulusB64, exponentB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<Signature xmlns="` + NamespaceDS + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<SignatureValue>` + signatureValueB64 + `</SignatureValue>`)
	sb.WriteString(`<KeyInfo>`)
	sb.WriteString(`<KeyValue><RSAKeyValue>`)
	sb.WriteString(`<Modulus>` + modulusB64 + `</Modulus>`)
	sb.WriteString(`<Exponent>` + exponentB64 + `</Exponent>`)
	sb.WriteString(`</RSAKeyValue></KeyValue>`)
	sb.WriteString(`<X509Data><X509Certificate>` + certB64 + `</X509Certificate></X509Data>`)
	sb.WriteString(`</KeyInfo>`)
	sb.WriteString(`</Signature>`)
	return sb.String()
}

var _ sii.Signer = (*DigitalSignatureService)(nil)
