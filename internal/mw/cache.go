package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is a finished GET response as the client saw it.
type snapshot struct {
	status int
	header http.Header
	body   []byte
}

func (s snapshot) replay(c *gin.Context) {
	dst := c.Writer.Header()
	for k, v := range s.header {
		dst[k] = v
	}
	dst.Set("X-Cache", "HIT")
	c.Writer.WriteHeader(s.status)
	_, _ = c.Writer.Write(s.body)
}

// teeWriter copies the body into buf as the handler writes it.
type teeWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// cacheKey scopes an entry to the caller's role: the same URI can answer
// differently for staff allowed different views.
func cacheKey(c *gin.Context) string {
	return c.GetString(CtxStaffRole) + " " + c.Request.URL.RequestURI()
}

// Cache answers repeated GET requests from store for ttl. It must run after
// JWTAuth so entries are keyed by role. The router flushes store whenever
// campus state changes, so ttl only bounds how long idle entries are kept.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c)
		if v, ok := store.Get(key); ok {
			v.(snapshot).replay(c)
			c.Abort()
			return
		}

		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Writer.Header().Set("X-Cache", "MISS")
		c.Next()

		if status := tw.Status(); status >= 200 && status < 300 && !c.IsAborted() {
			store.Set(key, snapshot{
				status: status,
				header: tw.Header().Clone(),
				body:   bytes.Clone(tw.buf.Bytes()),
			}, ttl)
		}
	}
}
