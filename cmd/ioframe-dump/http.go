package main

import (
	"github.com/spf13/cobra"

	"github.com/kungfusheep/ioframe"
	"github.com/kungfusheep/ioframe/httpframing"
)

func newHTTPCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "http",
		Short: "Decode an HTTP/1.1 response",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDriver(cmd, func() *ioframe.Parser { return httpframing.NewParser() })
		},
	}
	return c
}
