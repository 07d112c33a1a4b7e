// Package resolvecheck confirms DNS propagation by querying name servers
// directly. It lives outside the facade's request path and is used by the
// zonecheck command and integration checks.
package resolvecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/miekg/dns"
)

var ErrNoAnswer = errors.New("no answer from server")

type Checker struct {
	client *dns.Client
	logger *slog.Logger
}

func New(logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Checker{
		client: &dns.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Lookup queries the given server for (name, qtype) without recursion and
// returns the answer contents. Port 53 is assumed when the server address
// carries none.
func (c *Checker) Lookup(ctx context.Context, name, qtype, server string) ([]string, error) {
	t, ok := dns.StringToType[strings.ToUpper(qtype)]
	if !ok {
		return nil, fmt.Errorf("unknown query type %q", qtype)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), t)
	m.RecursionDesired = false

	in, _, err := c.client.ExchangeContext(ctx, m, withDefaultPort(server))
	if err != nil {
		return nil, fmt.Errorf("query %s against %s failed: %w", name, server, err)
	}

	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("query %s against %s returned %s", name, server, dns.RcodeToString[in.Rcode])
	}

	contents := []string{}
	for _, rr := range in.Answer {
		contents = append(contents, answerContent(rr))
	}

	return contents, nil
}

// WaitFor polls every listed server until each answers (name, qtype) with
// the wanted content, backing off between rounds. It returns the last
// failure when the context runs out first.
func (c *Checker) WaitFor(ctx context.Context, name, qtype, want string, servers []string) error {
	check := func() error {
		for _, server := range servers {
			contents, err := c.Lookup(ctx, name, qtype, server)
			if err != nil {
				return err
			}

			if !slices.Contains(contents, want) {
				c.logger.Debug("server not propagated yet", "server", server, "name", name, "got", contents)
				return fmt.Errorf("%w: %s has no %s %q for %s", ErrNoAnswer, server, qtype, want, name)
			}
		}

		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)

	return backoff.Retry(check, bo)
}

func answerContent(rr dns.RR) string {
	switch v := rr.(type) {
	case *dns.A:
		return v.A.String()
	case *dns.AAAA:
		return v.AAAA.String()
	case *dns.CNAME:
		return v.Target
	case *dns.NS:
		return v.Ns
	case *dns.TXT:
		return strings.Join(v.Txt, " ")
	case *dns.PTR:
		return v.Ptr
	default:
		return rr.String()
	}
}

func withDefaultPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err != nil {
		return net.JoinHostPort(server, "53")
	}

	return server
}
