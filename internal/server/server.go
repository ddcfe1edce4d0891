package server

import (
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/readeck/instafilter/configs"
	"github.com/readeck/instafilter/internal/session"
	"github.com/readeck/instafilter/pkg/filters"
	"github.com/readeck/instafilter/pkg/pipeline"
)

// Server is a wrapper around chi router.
type Server struct {
	Router   *chi.Mux
	Filters  *filters.Registry
	Pipeline *pipeline.Pipeline
	Sessions *session.Store
}

// New create a new server with its API routes, serving the filters
// of the given registry, or the built-in ones when registry is nil.
func New(registry *filters.Registry) *Server {
	if registry == nil {
		registry = filters.Default
	}
	p := pipeline.New(registry)

	s := &Server{
		Router:   chi.NewRouter(),
		Filters:  registry,
		Pipeline: p,
		Sessions: session.NewStore(
			p,
			configs.Config.Server.SessionTTLDuration(),
			configs.Config.Filters.Default,
			configs.Config.Filters.Intensity,
		),
	}

	s.Router.Use(
		middleware.Recoverer,
		middleware.RealIP,
		middleware.RequestID,
		Logger(),
		SetRequestInfo,
		SetSecurity,
		LimitBody(configs.Config.Server.MaxUpload),
	)

	s.Router.Mount("/api", s.APIRoutes())

	return s
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", configs.Config.Server.Host, configs.Config.Server.Port),
		Handler:        s.Router,
		MaxHeaderBytes: 1 << 20,
	}

	// Add the profiler in dev mode
	if configs.Config.Main.DevMode {
		s.Router.Mount("/debug", middleware.Profiler())
		s.Router.Mount("/sys", s.SysRoutes())
	}

	return srv.ListenAndServe()
}

// Close closes every live session.
func (s *Server) Close() {
	s.Sessions.Close()
}

// Log returns a log entry including the request ID
func (s *Server) Log(r *http.Request) *log.Entry {
	return log.WithField("@id", s.GetReqID(r))
}

// SysRoutes returns the route returning some system
// information.
func (s *Server) SysRoutes() http.Handler {
	r := chi.NewRouter()

	type memInfo struct {
		Alloc      uint64 `json:"alloc"`
		TotalAlloc uint64 `json:"totalalloc"`
		Sys        uint64 `json:"sys"`
		NumGC      uint32 `json:"numgc"`
	}

	type sysInfo struct {
		OS         string  `json:"os"`
		Platform   string  `json:"platform"`
		Hostname   string  `json:"hostname"`
		CPUs       int     `json:"cpus"`
		GoVersion  string  `json:"go_version"`
		Goroutines int     `json:"goroutines"`
		Sessions   int     `json:"sessions"`
		Mem        memInfo `json:"mem"`
	}

	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		host, _ := os.Hostname()

		res := sysInfo{
			OS:         runtime.GOOS,
			Platform:   runtime.GOARCH,
			Hostname:   host,
			CPUs:       runtime.NumCPU(),
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			Sessions:   s.Sessions.Len(),
			Mem: memInfo{
				Alloc:      bToMb(m.Alloc),
				TotalAlloc: bToMb(m.TotalAlloc),
				Sys:        bToMb(m.Sys),
				NumGC:      m.NumGC,
			},
		}

		s.Render(w, r, 200, res)
	})

	return r
}

// GetReqID returns the request ID.
func (s *Server) GetReqID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
