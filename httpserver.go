package evcore

import (
	"net"
	"sync"

	"github.com/valyala/fasthttp"
)

// httpRequestState is the kind-specific state an HTTP server request's
// handleRecord carries. The fasthttp worker goroutine that received the
// request blocks on respCh until HTTPResponse is called or the peer
// disconnects, mirroring how tcp-send's goroutine blocks on a dial
// instead of the loop ever blocking.
type httpRequestState struct {
	mu        sync.Mutex
	ctx       *fasthttp.RequestCtx
	respCh    chan httpResponsePayload
	responded bool
	cancelled bool
}

type httpResponsePayload struct {
	status  int
	headers [][2]string
	body    []byte
}

// HTTPRequest exposes the fields of an inbound HTTP request to the
// application's request-cb.
type HTTPRequest struct {
	loop   *Loop
	id     Handle
	method string
	uri    string
	path   string
	query  string
	header [][2]string
	body   []byte
}

func (r *HTTPRequest) Method() string        { return r.method }
func (r *HTTPRequest) URI() string           { return r.uri }
func (r *HTTPRequest) Resource() string      { return r.path }
func (r *HTTPRequest) QueryString() string   { return r.query }
func (r *HTTPRequest) Headers() [][2]string  { return r.header }
func (r *HTTPRequest) Body() []byte          { return r.body }

// HTTPResponse emits status/headers/body for req. A request that has
// already been responded to, or whose peer has already disconnected, is
// a no-op.
func (l *Loop) HTTPResponse(req *HTTPRequest, status int, headers [][2]string, body []byte) {
	rec := l.registry.lookup(req.id)
	if rec == nil {
		return
	}
	st := rec.state.(*httpRequestState)

	st.mu.Lock()
	if st.responded || st.cancelled {
		st.mu.Unlock()
		return
	}
	st.responded = true
	st.mu.Unlock()

	l.registry.destroy(req.id)
	st.respCh <- httpResponsePayload{status: status, headers: headers, body: body}
}

// HTTPServerHandle is an application-visible handle to a listening HTTP
// server.
type HTTPServerHandle struct {
	loop *Loop
	id   Handle
}

// HTTPServer binds bindAddress:port and dispatches each inbound request
// to requestCB. Closing the server is idempotent and does not terminate
// in-flight requests.
func (l *Loop) HTTPServer(bindAddress string, port int, requestCB func(*Loop, *HTTPRequest), eventCB func(Condition), opts HTTPServerOptions) (*HTTPServerHandle, error) {
	ln, err := net.Listen("tcp", addrString(bindAddress, port))
	if err != nil {
		return nil, err
	}

	rec := l.registry.allocate(KindHTTPServer)

	srv := &fasthttp.Server{
		ReadTimeout:  durationFromSeconds(opts.ReadTimeoutSeconds),
		WriteTimeout: durationFromSeconds(opts.WriteTimeoutSeconds),
		Handler: func(ctx *fasthttp.RequestCtx) {
			reqRec := l.registry.allocate(KindHTTPRequest)
			st := &httpRequestState{ctx: ctx, respCh: make(chan httpResponsePayload, 1)}
			reqRec.state = st
			reqRec.cancel = func() {
				st.mu.Lock()
				st.cancelled = true
				st.mu.Unlock()
			}

			req := &HTTPRequest{
				loop:   l,
				id:     reqRec.id,
				method: string(ctx.Method()),
				uri:    string(ctx.RequestURI()),
				path:   string(ctx.Path()),
				query:  string(ctx.QueryArgs().QueryString()),
				body:   append([]byte(nil), ctx.PostBody()...),
			}
			ctx.Request.Header.VisitAll(func(k, v []byte) {
				req.header = append(req.header, [2]string{string(k), string(v)})
			})

			_ = l.Submit(func() {
				if l.registry.lookup(reqRec.id) == nil {
					return
				}
				l.safeCall(func() { requestCB(l, req) }, eventCB)
			})

			select {
			case resp := <-st.respCh:
				ctx.SetStatusCode(resp.status)
				for _, h := range resp.headers {
					ctx.Response.Header.Set(h[0], h[1])
				}
				ctx.SetBody(resp.body)
			case <-ctx.Done():
				st.mu.Lock()
				st.cancelled = true
				st.mu.Unlock()
				l.registry.destroy(reqRec.id)
				l.Submit(func() {
					l.dispatch(eventCB, newHTTPError(-1, "peer disconnected before response", nil))
				})
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			}
		},
	}

	rec.cancel = func() { _ = srv.Shutdown() }

	go func() { _ = srv.Serve(ln) }()

	return &HTTPServerHandle{loop: l, id: rec.id}, nil
}

// CloseHTTPServer stops accepting new connections. Calling it a second
// time is a no-op.
func (s *HTTPServerHandle) CloseHTTPServer() {
	s.loop.registry.destroy(s.id)
}
