package evcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNSLookupIPv4LiteralResolvesSynchronously(t *testing.T) {
	l := New()
	var addr string
	var family int
	err := l.Start(func(l *Loop) {
		l.DNSLookup("127.0.0.1", func(a string, f int) {
			addr = a
			family = f
		}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr)
	assert.Equal(t, AF_INET, family)
}

func TestDNSLookupIPv4LiteralHandleDestroyedImmediately(t *testing.T) {
	l := New()
	var statsAfter Stats
	err := l.Start(func(l *Loop) {
		h := l.DNSLookup("10.0.0.1", func(string, int) {}, nil)
		assert.NotZero(t, h)
		statsAfter = l.Stats()
	})
	require.NoError(t, err)
	assert.Equal(t, 0, statsAfter.OpenDNSQueries)
}

func TestDNSLookupInvalidHostDeliversDNSError(t *testing.T) {
	l := New()
	var cond Condition
	err := l.Start(func(l *Loop) {
		l.DNSLookup("this-host-name-should-never-resolve.invalid", func(string, int) {}, func(c Condition) {
			cond = c
			l.Exit()
		})
	})
	require.NoError(t, err)
	require.NotNil(t, cond)
	var dnsErr *DNSError
	assert.ErrorAs(t, cond, &dnsErr)
	assert.False(t, cond.Informational())
}
