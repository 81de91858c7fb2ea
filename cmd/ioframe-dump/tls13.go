package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kungfusheep/ioframe"
	"github.com/kungfusheep/ioframe/tls13"
)

func newTLS13Cmd() *cobra.Command {
	var message string
	c := &cobra.Command{
		Use:   "tls13",
		Short: "Decode a TLS 1.3 record or handshake message",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := tls13SchemaFor(message)
			if err != nil {
				return err
			}
			return runDriver(cmd, func() *ioframe.Parser { return schema.NewParser() })
		},
	}
	c.Flags().StringVar(&message, "message", "record",
		"which TLS 1.3 shape to decode: record|handshake|client-hello|server-hello")
	return c
}

func tls13SchemaFor(message string) (*ioframe.Schema, error) {
	switch message {
	case "record":
		return tls13.TLSPlaintext, nil
	case "handshake":
		return tls13.Handshake, nil
	case "client-hello":
		return tls13.ClientHello, nil
	case "server-hello":
		return tls13.ServerHello, nil
	default:
		return nil, fmt.Errorf("ioframe-dump: unknown tls13 --message %q", message)
	}
}
