package evcore

import (
	"context"
	"net"
)

// DNSLookup resolves host to an IPv4 address. If host already parses as
// an IPv4 literal, resolveCB is invoked synchronously within the call,
// the handle is created and immediately destroyed, and no goroutine is
// started. Otherwise resolution runs on a dedicated goroutine; on
// completion resolveCB is invoked on the loop goroutine via Submit, on
// failure a DNSError is delivered to eventCB instead.
func (l *Loop) DNSLookup(host string, resolveCB func(addr string, family int), eventCB func(Condition)) Handle {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			rec := l.registry.allocate(KindDNS)
			l.registry.destroy(rec.id)
			l.safeCall(func() { resolveCB(v4.String(), AF_INET) }, eventCB)
			return rec.id
		}
	}

	rec := l.registry.allocate(KindDNS)
	ctx, cancel := context.WithCancel(context.Background())
	rec.cancel = cancel

	go func() {
		resolver := net.DefaultResolver
		ips, err := resolver.LookupIP(ctx, "ip4", host)
		l.Submit(func() {
			if l.registry.lookup(rec.id) == nil {
				return
			}
			defer l.registry.destroy(rec.id)
			if err != nil {
				l.dispatch(eventCB, newDNSError(-1, "lookup failed", err))
				return
			}
			if len(ips) == 0 {
				l.dispatch(eventCB, newDNSError(-1, "no address found", nil))
				return
			}
			l.safeCall(func() {
				resolveCB(ips[0].String(), AF_INET)
			}, eventCB)
		})
	}()

	return rec.id
}

// AF_INET is the only address family this resolver ever produces.
const AF_INET = 2
