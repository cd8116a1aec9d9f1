// Command mathserver is an MCP tool server on stdio offering the add,
// subtract, multiply and divide tools. It is the reference server for
// mcpchat.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/KamdynS/mcpchat/mcp"
	"github.com/KamdynS/mcpchat/tools"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "v0.1.0"

var logger = xlog.NewPackageLogger("github.com/KamdynS/mcpchat/cmd", "mathserver")

func main() {
	os.Exit(realMain(os.Args[1:], os.Stderr))
}

func realMain(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mathserver", flag.ContinueOnError)
	fs.SetOutput(stderr)
	pageSize := fs.Int("page-size", 0, "Tools per tools/list page, 0 for the server default")
	debug := fs.Bool("debug", false, "Log requests to stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// stdout carries the protocol, logs go to stderr
	xlog.SetFormatter(xlog.NewStringFormatter(stderr))
	if *debug {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, *pageSize); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, pageSize int) error {
	var opts *sdkmcp.ServerOptions
	if pageSize > 0 {
		opts = &sdkmcp.ServerOptions{PageSize: pageSize}
	}
	srv := mcp.NewToolServer("mathserver", version, tools.NewArithmeticTools(), opts)

	logger.KV(xlog.INFO, "status", "serving", "tools", len(tools.ArithmeticOps))
	err := mcp.ServeStdio(ctx, srv)
	if err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "serve")
	}
	return nil
}
