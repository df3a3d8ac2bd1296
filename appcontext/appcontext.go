package appcontext

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// AppContext holds request-scoped data and dependencies.
// Logger is the router's logger tagged with the request id.
type AppContext struct {
	context.Context
	Writer  http.ResponseWriter
	Request *http.Request
	Logger  *zap.SugaredLogger
}

// sync.Pool for AppContext reuse
var appContextPool = sync.Pool{
	New: func() any {
		return new(AppContext)
	},
}

// CleanPut resets AppContext fields and puts it back to the pool
func CleanPut(ctx *AppContext) {
	ctx.Context = nil
	ctx.Writer = nil
	ctx.Request = nil
	ctx.Logger = nil
	appContextPool.Put(ctx)
}

// sync.Pool for bytes.Buffer reuse when encoding responses
var fmtBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// CleanPutFmtBuffer resets the buffer and puts it back to the pool
func CleanPutFmtBuffer(buf *bytes.Buffer) {
	buf.Reset()
	fmtBufferPool.Put(buf)
}

// GetAppContext retrieves an AppContext from the pool
func GetAppContext() *AppContext {
	return appContextPool.Get().(*AppContext)
}

// GetFmtBuffer retrieves a bytes.Buffer from the pool
func GetFmtBuffer() *bytes.Buffer {
	return fmtBufferPool.Get().(*bytes.Buffer)
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON encodes v into a pooled buffer first so an encoding failure can still
// become a clean 500 instead of a half-written body.
func (ctx *AppContext) JSON(status int, v any) {
	buf := GetFmtBuffer()
	defer CleanPutFmtBuffer(buf)

	if err := json.NewEncoder(buf).Encode(v); err != nil {
		ctx.Logger.Errorw("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
	}

	ctx.Writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	ctx.Writer.WriteHeader(status)
	ctx.Writer.Write(buf.Bytes())
}

func (ctx *AppContext) Error(status int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message})
}

// DecodeJSON reads the request body into v.
func (ctx *AppContext) DecodeJSON(v any) error {
	body := http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxBodyBytes)
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

// RequestInfo travels in the request context so the outer middleware can see
// what the inner routers matched.
type RequestInfo struct {
	ID    string
	Route string
}

type requestInfoKey struct{}

func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns nil when no middleware installed one.
func RequestInfoFrom(ctx context.Context) *RequestInfo {
	info, _ := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info
}
