package scanner

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistExactMatch(t *testing.T) {
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.checkBlacklist(context.Background(), "malware-test.com")

	assert.True(t, res.Listed)
	assert.Equal(t, blacklistScore, res.Score)
	assert.Contains(t, res.Sources, "Local Threat Database")
	require.Len(t, res.Rules, 1)
	assert.Equal(t, 40, res.Rules[0].Points)
}

func TestBlacklistHashMatch(t *testing.T) {
	sum := md5.Sum([]byte("hash-listed.example"))
	policy := DefaultPolicy()
	policy.BlacklistedHashes = append(policy.BlacklistedHashes, hex.EncodeToString(sum[:])[:16])

	svc := New(policy, nil, nil)
	res := svc.checkBlacklist(context.Background(), "hash-listed.example")

	assert.True(t, res.Listed)
	assert.Equal(t, []string{"Threat Hash Database"}, res.Sources)
	assert.Equal(t, blacklistScore, res.Score)
}

func TestBlacklistFlatScoreAcrossSources(t *testing.T) {
	sum := md5.Sum([]byte("malware-test.com"))
	policy := DefaultPolicy()
	policy.BlacklistedHashes = append(policy.BlacklistedHashes, hex.EncodeToString(sum[:])[:16])

	svc := New(policy, nil, nil)
	res := svc.checkBlacklist(context.Background(), "malware-test.com")

	assert.True(t, res.Listed)
	assert.Len(t, res.Sources, 2)
	assert.Equal(t, blacklistScore, res.Score)
}

func TestBlacklistMiss(t *testing.T) {
	svc := New(DefaultPolicy(), nil, nil)
	res := svc.checkBlacklist(context.Background(), "example.org")

	assert.False(t, res.Listed)
	assert.Zero(t, res.Score)
	assert.Empty(t, res.Rules)
}

// dnsblServer answers A queries for names under the zone that appear in
// listed, NXDOMAIN for everything else.
func dnsblServer(t *testing.T, zone string, listed map[string]bool) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := dns.NewServeMux()
	mux.HandleFunc(dns.Fqdn(zone), func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		name := req.Question[0].Name
		if listed[name] {
			rr, err := dns.NewRR(name + " 60 IN A 127.0.0.2")
			if err == nil {
				m.Answer = append(m.Answer, rr)
			}
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	srv := &dns.Server{PacketConn: pc, Handler: mux}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestBlacklistDNSBLListed(t *testing.T) {
	policy := DefaultPolicy()
	policy.DNSBLZone = "dnsbl.test"
	policy.Resolver = dnsblServer(t, policy.DNSBLZone, map[string]bool{
		"bad-host.example.dnsbl.test.": true,
	})

	svc := New(policy, nil, nil)
	res := svc.checkBlacklist(context.Background(), "bad-host.example")

	assert.True(t, res.Listed)
	assert.Equal(t, []string{"DNS Blocklist (dnsbl.test)"}, res.Sources)
	assert.Equal(t, blacklistScore, res.Score)
}

func TestBlacklistDNSBLMiss(t *testing.T) {
	policy := DefaultPolicy()
	policy.DNSBLZone = "dnsbl.test"
	policy.Resolver = dnsblServer(t, policy.DNSBLZone, nil)

	svc := New(policy, nil, nil)
	res := svc.checkBlacklist(context.Background(), "clean-host.example")

	assert.False(t, res.Listed)
	assert.Zero(t, res.Score)
}
