// bpfobject inspects the maps of an eBPF object and reads its event
// buffers.
package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/frobware/go-bpfobject/cmd/bpfobject/cli"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c, cli.KongOptions()...)
	ctx.BindTo(context.Background(), (*context.Context)(nil))
	ctx.FatalIfErrorf(ctx.Run(&c))
}
