package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kungfusheep/ioframe"
	"github.com/kungfusheep/ioframe/socks5"
)

func newSocks5Cmd() *cobra.Command {
	var message string
	c := &cobra.Command{
		Use:   "socks5",
		Short: "Decode a SOCKS5 message",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := socks5SchemaFor(message)
			if err != nil {
				return err
			}
			return runDriver(cmd, func() *ioframe.Parser { return schema.NewParser() })
		},
	}
	c.Flags().StringVar(&message, "message", "handshake",
		"which SOCKS5 message to decode: handshake|selection|request|reply|udp-relay")
	return c
}

func socks5SchemaFor(message string) (*ioframe.Schema, error) {
	switch message {
	case "handshake":
		return socks5.Handshake, nil
	case "selection":
		return socks5.ServerSelection, nil
	case "request":
		return socks5.ClientRequest, nil
	case "reply":
		return socks5.Reply, nil
	case "udp-relay":
		return socks5.UDPRelay, nil
	default:
		return nil, fmt.Errorf("ioframe-dump: unknown socks5 --message %q", message)
	}
}
