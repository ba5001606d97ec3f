package evcore

import (
	"github.com/valyala/fasthttp"
)

// HTTPClient issues a one-shot request against uri. method defaults to
// GET; Connection is always forced to close-on-reply regardless of any
// caller-supplied header, and no persistent connection is kept. On
// success requestCB receives the parsed status, headers, and body; on
// failure the condition is routed to eventCB. The record is destroyed
// after the terminal callback.
func (l *Loop) HTTPClient(uri string, requestCB func(status int, headers [][2]string, body []byte), eventCB func(Condition), opts HTTPClientOptions) Handle {
	rec := l.registry.allocate(KindHTTPClient)

	method := opts.Method
	if method == "" {
		method = "GET"
	}
	timeout := opts.TimeoutSeconds

	go func() {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(uri)
		req.Header.SetMethod(method)
		for k, v := range opts.Headers {
			if equalFoldConnection(k) {
				continue
			}
			req.Header.Set(k, v)
		}
		req.Header.SetConnectionClose()
		if len(opts.Body) > 0 {
			req.SetBody(opts.Body)
		}

		client := &fasthttp.Client{}

		var err error
		if timeout > 0 {
			err = client.DoTimeout(req, resp, durationFromSeconds(timeout))
		} else {
			err = client.Do(req, resp)
		}

		// resp/req are reclaimed by the pool when this goroutine returns
		// (the deferred Release* calls run before Submit's closure is ever
		// drained on the loop goroutine), so snapshot everything needed by
		// the callback into locals now, while the pooled objects are still
		// ours.
		var status int
		var headers [][2]string
		var body []byte
		if err == nil {
			status = resp.StatusCode()
			resp.Header.VisitAll(func(k, v []byte) {
				headers = append(headers, [2]string{string(k), string(v)})
			})
			body = append([]byte(nil), resp.Body()...)
		}

		l.Submit(func() {
			if l.registry.lookup(rec.id) == nil {
				return
			}
			defer l.registry.destroy(rec.id)

			if err != nil {
				l.dispatch(eventCB, classifyHTTPClientError(err))
				return
			}

			l.safeCall(func() { requestCB(status, headers, body) }, eventCB)
		})
	}()

	return rec.id
}

func equalFoldConnection(key string) bool {
	if len(key) != len("Connection") {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i] | 0x20
		want := "connection"[i]
		if c != want {
			return false
		}
	}
	return true
}

func classifyHTTPClientError(err error) Condition {
	if err == fasthttp.ErrTimeout {
		return newHTTPTimeout()
	}
	if isTimeout(err) {
		return newHTTPTimeout()
	}
	return newHTTPRefused(err)
}
