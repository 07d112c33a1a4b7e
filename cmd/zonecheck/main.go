// zonecheck queries name servers directly to confirm a record has propagated.
//
//	zonecheck -server ns1.example.com -type A www.example.org.
//	zonecheck -server ns1.example.com,ns2.example.com -type A -want 10.0.0.1 www.example.org.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/msolakov/pdns-facade/resolvecheck"
)

func main() {
	servers := flag.String("server", "", "comma-separated name servers to query")
	qtype := flag.String("type", "A", "record type to query")
	want := flag.String("want", "", "wait until every server answers with this content")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout when waiting")
	flag.Parse()

	if *servers == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: zonecheck -server <ns[,ns...]> [-type T] [-want content] <name>")
		os.Exit(2)
	}

	name := flag.Arg(0)
	logger := slog.New(tint.NewHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	checker := resolvecheck.New(logger)
	serverList := strings.Split(*servers, ",")

	if *want != "" {
		if err := checker.WaitFor(ctx, name, *qtype, *want, serverList); err != nil {
			logger.Error("propagation check failed", "name", name, "error", err)
			os.Exit(1)
		}

		logger.Info("record propagated", "name", name, "type", *qtype, "content", *want)
		return
	}

	failed := false
	for _, server := range serverList {
		contents, err := checker.Lookup(ctx, name, *qtype, server)
		if err != nil {
			logger.Error("lookup failed", "server", server, "error", err)
			failed = true
			continue
		}

		if len(contents) == 0 {
			logger.Warn("no answer", "server", server, "name", name, "type", *qtype)
			failed = true
			continue
		}

		for _, content := range contents {
			fmt.Printf("%s\t%s\t%s\t%s\n", server, name, *qtype, content)
		}
	}

	if failed {
		os.Exit(1)
	}
}
