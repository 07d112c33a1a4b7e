package resolvecheck

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDNSServer(t *testing.T, records map[string]string) string {
	t.Helper()

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)

		q := r.Question[0]
		ip, ok := records[q.Name]
		if !ok || q.Qtype != dns.TypeA {
			m.Rcode = dns.RcodeNameError
			_ = w.WriteMsg(m)
			return
		}

		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.ParseIP(ip),
		})
		_ = w.WriteMsg(m)
	})

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestChecker_Lookup(t *testing.T) {
	t.Parallel()
	addr := startDNSServer(t, map[string]string{"www.example.org.": "10.0.0.1"})
	c := New(nil)

	contents, err := c.Lookup(t.Context(), "www.example.org.", "A", addr)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1"}, contents)
}

func TestChecker_Lookup_NXDomain(t *testing.T) {
	t.Parallel()
	addr := startDNSServer(t, map[string]string{})
	c := New(nil)

	_, err := c.Lookup(t.Context(), "missing.example.org.", "A", addr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NXDOMAIN")
}

func TestChecker_Lookup_UnknownType(t *testing.T) {
	t.Parallel()
	c := New(nil)

	_, err := c.Lookup(t.Context(), "www.example.org.", "BOGUS", "127.0.0.1:5300")
	assert.Error(t, err)
}

func TestChecker_WaitFor(t *testing.T) {
	t.Parallel()
	addr := startDNSServer(t, map[string]string{"www.example.org.": "10.0.0.1"})
	c := New(nil)

	err := c.WaitFor(t.Context(), "www.example.org.", "A", "10.0.0.1", []string{addr})
	assert.NoError(t, err)
}

func TestWithDefaultPort(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ns1.example.com:53", withDefaultPort("ns1.example.com"))
	assert.Equal(t, "ns1.example.com:5353", withDefaultPort("ns1.example.com:5353"))
}
