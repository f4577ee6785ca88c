package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

func main() {
	// Diagnóstico rápido del certificado digital SII: lee las mismas
	// variables de entorno que la app y verifica archivo + contraseña.
	certPath := os.Getenv("SII_CERT_PATH")
	certPass := os.Getenv("SII_CERT_PASSWORD")
	if certPath == "" {
		fmt.Println("❌ SII_CERT_PATH no está definida. Exporta las variables de tu .env primero.")
		return
	}

	fmt.Println("🔍 DIAGNÓSTICO DE CERTIFICADO SII")
	fmt.Println("----------------------------------")
	fmt.Printf("📂 Intentando leer: %s\n", certPath)

	p12Data, err := os.ReadFile(certPath)
	if err != nil {
		fmt.Println("\n❌ ERROR DE ARCHIVO:")
		fmt.Printf("   Go no puede encontrar o abrir el archivo.\n")
		fmt.Printf("   Detalle técnico: %v\n", err)
		return
	}
	fmt.Printf("✅ Archivo encontrado. Tamaño: %d bytes\n", len(p12Data))

	fmt.Println("\n🔐 Intentando decodificar PKCS#12 con la contraseña...")
	_, _, err = pkcs12.Decode(p12Data, certPass)
	if err != nil {
		fmt.Println("\n❌ ERROR DE CONTRASEÑA O FORMATO:")
		fmt.Println("   El archivo existe, pero la contraseña falló o el archivo está corrupto.")
		fmt.Printf("   Detalle técnico: %v\n", err)
		return
	}

	fmt.Println("\n✨ ¡ÉXITO! El certificado y la contraseña son correctos.")
	fmt.Println("   El problema NO es el archivo, es cómo tu app carga el .env.")
}
