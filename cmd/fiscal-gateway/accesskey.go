package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-fiscal/pkg/accesskey"
)

func newAccessKeyCommand() *cobra.Command {
	var (
		p        accesskey.Params
		validate string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "accesskey",
		Short: "Compute or validate a 44-digit NF-e access key",
		Example: `  fiscal-gateway accesskey --uf 35 --emissao 2024-01-15T10:00:00-03:00 \
      --cnpj 52507723000185 --serie 1 --numero 511 --cnf 12345678
  fiscal-gateway accesskey --validate 35240152507723000185550010000005111123456782`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if validate != "" {
				if err := accesskey.Validate(validate); err != nil {
					return err
				}
				fmt.Fprintln(out, "valid")
				return nil
			}

			key, err := accesskey.Compute(p)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"chave": key.Value,
					"cNF":   key.RandomCode,
					"cDV":   key.CheckDigit,
				})
			}
			fmt.Fprintln(out, key.Value)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&p.StateCode, "uf", 0, "IBGE state code (cUF)")
	f.StringVar(&p.EmissionDate, "emissao", "", "emission date-time (dhEmi), ISO 8601")
	f.StringVar(&p.TaxpayerID, "cnpj", "", "issuer CNPJ or CPF")
	f.IntVar(&p.Model, "modelo", 55, "document model (55 NF-e, 65 NFC-e)")
	f.IntVar(&p.Series, "serie", 1, "series")
	f.IntVar(&p.Number, "numero", 0, "document number (nNF)")
	f.IntVar(&p.EmissionType, "tpemis", 1, "emission type (tpEmis)")
	f.StringVar(&p.RandomCode, "cnf", "", "8-digit random code; generated when empty")
	f.StringVar(&validate, "validate", "", "validate an existing key instead of computing one")
	f.BoolVar(&asJSON, "json", false, "print the key with its cNF and check digit as JSON")
	cmd.MarkFlagsMutuallyExclusive("validate", "uf")
	return cmd
}
