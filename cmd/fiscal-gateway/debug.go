package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sirosfoundation/go-fiscal/pkg/compression"
)

func newDebugCommand() *cobra.Command {
	var side string
	cmd := &cobra.Command{
		Use:   "debug <response.json|->",
		Short: "Print the SOAP exchange carried by an includeSoap response",
		Long: `debug decodes the soap member of a gateway response, taken from data.soap,
error.soap or a bare payload object, and prints the request and response
envelopes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch side {
			case "both", "request", "response":
			default:
				return fmt.Errorf("--side must be both, request or response")
			}
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			payload, err := debugPayload(data)
			if err != nil {
				return err
			}
			request, response, err := compression.NewCompressor().Decode(payload)
			if err != nil {
				return fmt.Errorf("decoding soap payload: %w", err)
			}

			out := cmd.OutOrStdout()
			if side != "response" {
				fmt.Fprintf(out, "# request (%d bytes)\n%s\n", len(request), request)
			}
			if side != "request" {
				fmt.Fprintf(out, "# response (%d bytes)\n%s\n", len(response), response)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&side, "side", "both", "which envelope to print: both, request or response")
	return cmd
}

// debugPayload finds the soap member of an API response, falling back to
// data holding the payload itself.
func debugPayload(data []byte) (*compression.DebugPayload, error) {
	var resp struct {
		Data *struct {
			Soap *compression.DebugPayload `json:"soap"`
		} `json:"data"`
		Error *struct {
			Soap *compression.DebugPayload `json:"soap"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	switch {
	case resp.Data != nil && resp.Data.Soap != nil:
		return resp.Data.Soap, nil
	case resp.Error != nil && resp.Error.Soap != nil:
		return resp.Error.Soap, nil
	}

	var p compression.DebugPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if p.Compression == "" {
		return nil, fmt.Errorf("no soap payload found; was the request sent with includeSoap?")
	}
	return &p, nil
}
