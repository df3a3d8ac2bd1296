package router

import (
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"treehole/appcontext"
)

type AppHandlerFunc func(ctx *appcontext.AppContext)

type Router struct {
	mux     *http.ServeMux
	mw      []func(http.Handler) http.Handler // signature of my middleware
	handler http.Handler
	tag     string
	Logger  *zap.SugaredLogger
}

func NewRouter(tag string, logger *zap.SugaredLogger) *Router {
	return &Router{
		mux:     http.NewServeMux(),
		mw:      []func(http.Handler) http.Handler{},
		handler: nil,
		tag:     tag,
		Logger:  logger.Named(tag),
	}
}

func (m *Router) applyMiddleware() {
	handler := http.Handler(m.mux)
	for i := len(m.mw) - 1; i >= 0; i-- {
		handler = m.mw[i](handler)
	}
	m.handler = handler
}

func (m *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.handler == nil {
		m.applyMiddleware()
	}
	m.handler.ServeHTTP(w, r)
}

func (m *Router) Use(middleware func(http.Handler) http.Handler) {
	m.mw = append(m.mw, middleware)
	m.handler = nil
}

func (m *Router) Handle(pattern string, handler AppHandlerFunc) {
	route := m.tag + " " + pattern
	m.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		ctx := appcontext.GetAppContext()
		ctx.Writer = w
		ctx.Request = r
		ctx.Context = r.Context()
		ctx.Logger = m.Logger
		if info := appcontext.RequestInfoFrom(r.Context()); info != nil {
			info.Route = route
			ctx.Logger = m.Logger.With("request_id", info.ID)
		}
		defer appcontext.CleanPut(ctx)
		handler(ctx)
	})
}

func (m *Router) HandleStatic(pattern string, handler http.Handler) {
	route := m.tag + " " + pattern
	m.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if info := appcontext.RequestInfoFrom(r.Context()); info != nil {
			info.Route = route
		}
		handler.ServeHTTP(w, r)
	}))
}

func (m *Router) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	m.mux.HandleFunc(pattern, handler)
}

func (m *Router) Include(router *Router, prefix string) {
	if router.handler == nil {
		router.applyMiddleware()
	}
	m.mux.Handle(prefix+"/", http.StripPrefix(prefix, router.handler))
}

// RegisterFileServer serves assets at the router root. index.html answers
// for "/". The pattern carries no method so included routers such as "/api/"
// stay more specific than it.
func (m *Router) RegisterFileServer(assets fs.FS) {
	files := http.FileServerFS(assets)
	m.HandleStatic("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		files.ServeHTTP(w, r)
	}))
	m.Logger.Debugw("registered file server")
}

// Redirect answers exactly "/" with a redirect to target.
func (m *Router) Redirect(target string) {
	m.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	})
}
