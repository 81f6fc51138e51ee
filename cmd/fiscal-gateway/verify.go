package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-fiscal/pkg/security"
)

func newVerifyCommand() *cobra.Command {
	var certFile, pfxFile, password string
	cmd := &cobra.Command{
		Use:   "verify <signed.xml>",
		Short: "Verify the enveloped signatures of a signed NF-e or NFS-e document",
		Long: `verify checks every XML-DSig Signature of a document. Without --cert or
--pfx each signature is checked against the certificate in its own KeyInfo.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if certFile != "" && pfxFile != "" {
				return fmt.Errorf("--cert and --pfx are mutually exclusive")
			}
			doc, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			var cert *x509.Certificate
			switch {
			case certFile != "":
				cert, err = readPEMCertificate(certFile)
			case pfxFile != "":
				cert, err = readPFXCertificate(pfxFile, password)
			}
			if err != nil {
				return err
			}

			if err := security.VerifyEnveloped(string(doc), cert); err != nil {
				return fmt.Errorf("verification failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&certFile, "cert", "", "PEM certificate to verify against")
	f.StringVar(&pfxFile, "pfx", "", "PKCS#12 container holding the signing certificate")
	f.StringVar(&password, "password", "", "password of the PKCS#12 container")
	return cmd
}

func readPEMCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%s: no PEM certificate found", path)
	}
	return x509.ParseCertificate(block.Bytes)
}

func readPFXCertificate(path, password string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	creds, err := security.OpenPKCS12(data, password)
	if err != nil {
		return nil, err
	}
	return creds.Certificate, nil
}
