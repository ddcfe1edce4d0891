package server

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/readeck/instafilter/configs"
	"github.com/readeck/instafilter/internal/session"
	"github.com/readeck/instafilter/pkg/filters"
	"github.com/readeck/instafilter/pkg/img"
)

type ctxSessionKey struct{}

// apiRouter is the filter and session API router.
type apiRouter struct {
	chi.Router
	srv *Server
}

// APIRoutes returns the API router with all the routes set up.
func (s *Server) APIRoutes() http.Handler {
	api := &apiRouter{chi.NewRouter(), s}

	api.Get("/filters", api.filterList)
	api.Post("/render", api.render)

	api.Route("/sessions", func(r chi.Router) {
		r.Post("/", api.sessionCreate)
		r.With(api.withSession).Group(func(r chi.Router) {
			r.Get("/{id}", api.sessionInfo)
			r.Patch("/{id}", api.sessionUpdate)
			r.Delete("/{id}", api.sessionDelete)
			r.Get("/{id}/image", api.sessionImage)
			r.Put("/{id}/image", api.sessionLoad)
		})
	})

	return api
}

// filterKeys returns the registry keys as validation values.
func filterKeys(r *filters.Registry) []interface{} {
	keys := r.Keys()
	res := make([]interface{}, len(keys))
	for i, k := range keys {
		res[i] = k
	}
	return res
}

var isFormat = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s != "" && !img.IsFormat(s) {
		return fmt.Errorf("unsupported format %q", s)
	}
	return nil
})

// renderQuery holds the query string of a one shot render.
type renderQuery struct {
	Filter    string   `schema:"filter" json:"filter"`
	Intensity *float64 `schema:"intensity" json:"intensity"`
	Format    string   `schema:"format" json:"format"`

	registry *filters.Registry `schema:"-"`
}

// Validate validates the render parameters.
func (q renderQuery) Validate() error {
	return validation.ValidateStruct(
		&q,
		validation.Field(&q.Filter, validation.Required, validation.In(filterKeys(q.registry)...)),
		validation.Field(&q.Format, isFormat),
	)
}

// imageQuery holds the query string of an image response.
type imageQuery struct {
	Format string `schema:"format" json:"format"`
	Size   int    `schema:"size" json:"size"`
	Wait   bool   `schema:"wait" json:"wait"`
}

// Validate validates the image parameters.
func (q imageQuery) Validate() error {
	return validation.ValidateStruct(
		&q,
		validation.Field(&q.Format, isFormat),
		validation.Field(&q.Size, validation.Min(0)),
	)
}

// sessionPayload is the payload of a session update. Only the given
// fields are changed.
type sessionPayload struct {
	Filter    *string  `json:"filter"`
	Intensity *float64 `json:"intensity"`

	registry *filters.Registry
}

// Validate validates the session update. An intensity out of range
// is clamped later on, never rejected.
func (p sessionPayload) Validate() error {
	return validation.ValidateStruct(
		&p,
		validation.Field(&p.Filter,
			validation.NilOrNotEmpty,
			validation.In(filterKeys(p.registry)...),
		),
		validation.Field(&p.Intensity,
			validation.When(p.Filter == nil, validation.NotNil.Error("filter or intensity is required")),
		),
	)
}

// withSession loads the session matching the URL and stores it
// in the request context.
func (api *apiRouter) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, ok := api.srv.Sessions.Get(id)
		if !ok {
			api.srv.TextMessage(w, r, http.StatusNotFound, "Session not found")
			return
		}

		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// readImage decodes the image in the request body. An empty body
// yields a nil image.
func (api *apiRouter) readImage(w http.ResponseWriter, r *http.Request) (*img.Image, bool) {
	if r.ContentLength == 0 {
		return nil, true
	}

	m, err := img.Decode(r.Body)
	if err != nil {
		api.srv.TextMessage(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}

	api.srv.Log(r).WithField("format", m.Format()).
		WithField("width", m.Width()).
		WithField("height", m.Height()).
		Debug("image loaded")
	return m, true
}

// filterList renders the filter catalog.
func (api *apiRouter) filterList(w http.ResponseWriter, r *http.Request) {
	api.srv.Render(w, r, http.StatusOK, api.srv.Filters.List())
}

// render applies a filter to the image in the request body and
// sends the result.
func (api *apiRouter) render(w http.ResponseWriter, r *http.Request) {
	q := &renderQuery{registry: api.srv.Filters}
	if msg := api.srv.BindQueryString(r, q); msg != nil {
		api.srv.Message(w, r, msg)
		return
	}

	m, ok := api.readImage(w, r)
	if !ok {
		return
	}
	if m == nil {
		api.srv.TextMessage(w, r, http.StatusBadRequest, "No image")
		return
	}

	intensity := configs.Config.Filters.Intensity
	if q.Intensity != nil {
		intensity = *q.Intensity
	}

	res, err := api.srv.Pipeline.Apply(m.Image(), q.Filter, intensity)
	if err != nil {
		api.srv.RenderError(w, r, err)
		return
	}

	format := q.Format
	if format == "" {
		format = m.Format()
	}
	setResultHeaders(w, res.Filter.Key, res.Intensity)
	api.srv.RenderImage(w, r, res.Bitmap, format)
}

// sessionCreate creates a new session, loading the image in the
// request body if any.
func (api *apiRouter) sessionCreate(w http.ResponseWriter, r *http.Request) {
	m, ok := api.readImage(w, r)
	if !ok {
		return
	}

	var sess *session.Session
	var err error
	if m != nil {
		sess, err = api.srv.Sessions.Create(m.Image())
	} else {
		sess, err = api.srv.Sessions.Create(nil)
	}
	if err != nil {
		api.srv.RenderError(w, r, err)
		return
	}

	w.Header().Set("Location", path.Join(r.URL.Path, sess.ID))
	api.srv.Render(w, r, http.StatusCreated, sess.Info())
}

// sessionInfo renders a session snapshot.
func (api *apiRouter) sessionInfo(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(ctxSessionKey{}).(*session.Session)
	api.srv.Render(w, r, http.StatusOK, sess.Info())
}

// sessionUpdate changes the filter and/or the intensity of a session.
func (api *apiRouter) sessionUpdate(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(ctxSessionKey{}).(*session.Session)

	p := &sessionPayload{registry: api.srv.Filters}
	if msg := api.srv.LoadJSON(r, p); msg != nil {
		api.srv.Message(w, r, msg)
		return
	}

	var err error
	switch {
	case p.Filter != nil && p.Intensity != nil:
		err = sess.Select(*p.Filter, *p.Intensity)
	case p.Filter != nil:
		err = sess.SetFilter(*p.Filter)
	default:
		err = sess.SetIntensity(*p.Intensity)
	}
	if err != nil {
		api.srv.RenderError(w, r, err)
		return
	}

	api.sendSession(w, r, sess)
}

// sessionLoad replaces the session image.
func (api *apiRouter) sessionLoad(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(ctxSessionKey{}).(*session.Session)

	m, ok := api.readImage(w, r)
	if !ok {
		return
	}
	if m == nil {
		api.srv.TextMessage(w, r, http.StatusBadRequest, "No image")
		return
	}

	if err := sess.Load(m.Image()); err != nil {
		api.srv.RenderError(w, r, err)
		return
	}

	api.sendSession(w, r, sess)
}

// sendSession renders the session snapshot after a change. With
// "wait" in the query string, it waits for the render first.
func (api *apiRouter) sendSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		sess.Wait()
		api.srv.Render(w, r, http.StatusOK, sess.Info())
		return
	}

	api.srv.Render(w, r, http.StatusAccepted, sess.Info())
}

// sessionDelete closes a session.
func (api *apiRouter) sessionDelete(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(ctxSessionKey{}).(*session.Session)
	api.srv.Sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// sessionImage sends the displayed image of a session.
func (api *apiRouter) sessionImage(w http.ResponseWriter, r *http.Request) {
	sess := r.Context().Value(ctxSessionKey{}).(*session.Session)

	q := &imageQuery{}
	if msg := api.srv.BindQueryString(r, q); msg != nil {
		api.srv.Message(w, r, msg)
		return
	}

	if q.Wait {
		sess.Wait()
	}

	res := sess.Current()
	if res == nil {
		if err := sess.Err(); err != nil {
			api.srv.RenderError(w, r, err)
			return
		}
		api.srv.TextMessage(w, r, http.StatusNotFound, "No image rendered yet")
		return
	}

	format := q.Format
	if format == "" {
		format = configs.Config.Images.Format
	}
	setResultHeaders(w, res.Filter.Key, res.Intensity)
	api.srv.RenderImage(w, r, img.Thumbnail(res.Bitmap, q.Size), format)
}

func setResultHeaders(w http.ResponseWriter, filter string, intensity float64) {
	w.Header().Set("X-Filter", filter)
	w.Header().Set("X-Intensity", strconv.FormatFloat(intensity, 'f', -1, 64))
}
