package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/readeck/instafilter/configs"
)

// slowRender is the duration after which an image response is
// reported as slow. Other responses use slowRequest.
const (
	slowRender  = 2 * time.Second
	slowRequest = 500 * time.Millisecond
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.Bold, color.FgHiBlue),
	"HEAD":   color.New(color.Bold, color.FgHiBlue),
	"POST":   color.New(color.Bold, color.FgHiGreen),
	"PATCH":  color.New(color.Bold, color.FgYellow),
	"PUT":    color.New(color.Bold, color.FgYellow),
	"DELETE": color.New(color.Bold, color.FgRed),
}

func statusColor(status int) *color.Color {
	switch {
	case status < 200:
		return color.New(color.FgBlue)
	case status < 300:
		return color.New(color.FgGreen)
	case status < 400:
		return color.New(color.FgCyan)
	case status < 500:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

// apiLogFormatter writes one colored line per request, followed by the
// session, filter and intensity when the request carried them.
type apiLogFormatter struct{}

func (f *apiLogFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	d := entry.Data

	dim := color.New(color.FgWhite)
	blue := color.New(color.FgBlue)

	dim.Fprint(&b, "[API")
	if reqID, ok := d["@id"]; ok {
		blue.Fprintf(&b, " %s", reqID)
	}
	dim.Fprint(&b, "] ")

	met, _ := d["http_method"].(string)
	mc, ok := methodColors[met]
	if !ok {
		mc = color.New(color.Bold, color.FgHiWhite)
	}
	mc.Fprint(&b, met)
	dim.Fprintf(&b, " %s ", d["path"])

	status, _ := d["status"].(int)
	statusColor(status).Fprint(&b, status)
	color.New(color.FgCyan).Fprintf(&b, " %d", d["length"])
	if ct, _ := d["content_type"].(string); ct != "" {
		blue.Fprintf(&b, " %s", ct)
	}

	elapsed, _ := d["elapsed"].(time.Duration)
	limit := slowRequest
	if _, isRender := d["filter"]; isRender {
		limit = slowRender
	}
	dim.Fprint(&b, " in ")
	switch {
	case elapsed < limit:
		color.New(color.FgGreen).Fprint(&b, elapsed)
	case elapsed < 2*limit:
		color.New(color.FgYellow).Fprint(&b, elapsed)
	default:
		color.New(color.FgRed).Fprint(&b, elapsed)
	}

	if id, ok := d["session"]; ok {
		dim.Fprint(&b, " session=")
		blue.Fprint(&b, id)
	}
	if filter, ok := d["filter"]; ok {
		dim.Fprint(&b, " filter=")
		color.New(color.FgMagenta).Fprintf(&b, "%s@%s", filter, d["intensity"])
	}

	b.WriteString("\n")
	return b.Bytes(), nil
}

// Logger is a middleware that logs requests.
func Logger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(newLogger())
}

func newLogger() *apiLogger {
	if !configs.Config.Main.DevMode {
		return &apiLogger{log.StandardLogger()}
	}

	color.NoColor = false
	l := log.New()
	l.Formatter = &apiLogFormatter{}
	l.Level = log.StandardLogger().Level
	return &apiLogger{l}
}

type apiLogger struct {
	logger *log.Logger
}

func (al *apiLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &apiLogEntry{
		r: r,
		e: al.logger.WithFields(log.Fields{
			"@id":         middleware.GetReqID(r.Context()),
			"http_method": r.Method,
			"http_proto":  r.Proto,
			"remote_addr": r.RemoteAddr,
			"path":        r.RequestURI,
			"ua":          r.UserAgent(),
		}),
	}
}

type apiLogEntry struct {
	r *http.Request
	e *log.Entry
}

// Write logs the response. The route pattern and session ID are read
// from the routing context, which is complete once the handler ran.
func (l *apiLogEntry) Write(status, length int, header http.Header, elapsed time.Duration, _ interface{}) {
	fields := log.Fields{
		"status":       status,
		"length":       length,
		"content_type": header.Get("Content-Type"),
		"elapsed":      elapsed,
		"elapsed_ms":   float64(elapsed.Nanoseconds()) / 1000000.0,
	}
	if rctx := chi.RouteContext(l.r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			fields["route"] = p
		}
		if id := rctx.URLParam("id"); id != "" {
			fields["session"] = id
		}
	}
	if filter := header.Get("X-Filter"); filter != "" {
		fields["filter"] = filter
		fields["intensity"] = header.Get("X-Intensity")
	}

	e := l.e.WithFields(fields)
	switch {
	case status >= 500:
		e.Warn("http")
	case fields["filter"] != nil && elapsed >= slowRender:
		e.Warn("slow render")
	default:
		e.Info("http")
	}
}

func (l *apiLogEntry) Panic(v interface{}, stack []byte) {
	l.e.WithFields(log.Fields{
		"panic": fmt.Sprintf("%+v", v),
		"stack": string(stack),
	}).Error("http panic")
}
