// Package stats exposes a handful of engine counters over an optional
// --stats-addr expvar/fasthttp endpoint, grounded in
// ninja-rbe/fileserve.go's fsCalls/fsOKResponses-style expvar counters.
package stats

import (
	"expvar"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/expvarhandler"
)

var (
	Dispatched = expvar.NewInt("parallel_dispatched")
	Completed  = expvar.NewInt("parallel_completed")
	Failed     = expvar.NewInt("parallel_failed")
	Killed     = expvar.NewInt("parallel_killed")
	Active     = expvar.NewInt("parallel_active")
)

// Serve starts a fasthttp server exposing /stats (expvar) until stop is
// closed. Intended to run on its own goroutine; errors are logged, not
// returned, since the stats endpoint is optional instrumentation and
// never load-bearing for the engine's correctness.
func Serve(addr string, stop <-chan struct{}) {
	if addr == "" {
		return
	}
	handler := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/stats", "/":
			expvarhandler.ExpvarHandler(ctx)
		default:
			ctx.NotFound()
		}
	}
	server := &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		<-stop
		_ = server.Shutdown()
	}()
	if err := server.ListenAndServe(addr); err != nil {
		log.Printf("parallel: stats server on %s: %v", addr, err)
	}
}
