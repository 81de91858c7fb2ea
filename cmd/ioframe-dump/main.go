// Command ioframe-dump reads a raw byte stream and decodes it against a
// selectable exemplar schema, printing the decoded record as JSON. It is
// the host/driver side of the engine made concrete: a real net.Conn or
// os.Stdin feeding a Parser via Parser.Run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kungfusheep/ioframe/internal/framelog"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ioframe-dump",
		Short: "Decode a binary stream against an ioframe exemplar schema",
		Long: "ioframe-dump drives ioframe's sans-I/O parsers against a real byte\n" +
			"source (stdin or a listening TCP socket) and prints each decoded\n" +
			"record as JSON.",
	}
	c.AddCommand(newSocks5Cmd(), newTLS13Cmd(), newHTTPCmd())
	c.PersistentFlags().String("listen", "", "listen on this address instead of reading stdin (e.g. :1080)")
	return c
}

var log = framelog.Entry("ioframe-dump")
