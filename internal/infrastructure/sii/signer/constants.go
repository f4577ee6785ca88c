// Constantes para la firma XMLDSig de DTE (esquema xmldsignature_v10 del SII).

package signer

// Namespaces y algoritmos. El SII exige RSA-SHA1 y canonicalización C14N
// inclusiva sin comentarios.
const (
	NamespaceDS = "http://www.w3.org/2000/09/xmldsig#"
	AlgC14N     = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1  = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1     = "http://www.w3.org/2000/09/xmldsig#sha1"

	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
)
