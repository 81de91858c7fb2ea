package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kungfusheep/ioframe"
)

// toJSON converts whatever a schema parse produced into a plain
// JSON-marshalable value, since *ioframe.Instance itself carries
// unexported bookkeeping fields.
func toJSON(v any) any {
	switch vv := v.(type) {
	case *ioframe.Instance:
		m := make(map[string]any, len(vv.Schema().Fields))
		for _, f := range vv.Schema().Fields {
			m[f.Name] = toJSON(vv.Get(f.Name))
		}
		return m
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = toJSON(item)
		}
		return out
	default:
		return v
	}
}

// runDriver reads one frame (stdin) or an unbounded stream of frames
// (--listen, one Parser per connection) and prints each decoded result as
// JSON. newParser must return a fresh Parser on each call so --listen can
// run one independent computation per connection.
func runDriver(cmd *cobra.Command, newParser func() *ioframe.Parser) error {
	listenAddr, _ := cmd.Flags().GetString("listen")
	if listenAddr == "" {
		return runOnce(cmd, os.Stdin, newParser())
	}
	return runListener(cmd, listenAddr, newParser)
}

func runOnce(cmd *cobra.Command, r io.ReadWriter, p *ioframe.Parser) error {
	result, err := p.Run(r, log)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(toJSON(result))
}

func runListener(cmd *cobra.Command, addr string, newParser func() *ioframe.Parser) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ioframe-dump: listen %s: %w", addr, err)
	}
	defer ln.Close()
	log.WithField("addr", addr).Info("listening")

	group := new(errgroup.Group)
	for {
		conn, err := ln.Accept()
		if err != nil {
			_ = group.Wait()
			return err
		}
		group.Go(func() error {
			defer conn.Close()
			connLog := log.WithField("remote", conn.RemoteAddr().String())
			if err := runOnce(cmd, conn, newParser()); err != nil {
				connLog.WithError(err).Warn("connection decode failed")
			}
			return nil
		})
	}
}
