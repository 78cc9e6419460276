package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache holds cached GET responses. Every flush starts a new
// generation; a response rendered during an older one is never stored.
type ResponseCache struct {
	store *cache.Cache

	mu  sync.Mutex
	gen uint64
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl)}
}

func (rc *ResponseCache) generation() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.gen
}

// setIfCurrent stores resp unless the cache was flushed since gen.
func (rc *ResponseCache) setIfCurrent(gen uint64, key string, resp cachedResponse, d time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.gen == gen {
		rc.store.Set(key, resp, d)
	}
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.gen++
	rc.store.Flush()
}

// Cache serves repeated GET requests from rc. Only 2xx responses are kept.
func Cache(rc *ResponseCache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		gen := rc.generation()
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() >= 200 && blw.Status() < 300 {
			rc.setIfCurrent(gen, key, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    bytes.Clone(blw.body.Bytes()),
			}, duration)
		}
	}
}

// flushingWriter empties the cache as soon as a successful status is written,
// before the client can see the response.
type flushingWriter struct {
	gin.ResponseWriter
	rc   *ResponseCache
	once *sync.Once
}

func (w flushingWriter) WriteHeader(code int) {
	if code < http.StatusBadRequest {
		w.once.Do(w.rc.Flush)
	}
	w.ResponseWriter.WriteHeader(code)
}

// Invalidate flushes rc after every successful non-GET request.
func Invalidate(rc *ResponseCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		once := &sync.Once{}
		c.Writer = flushingWriter{ResponseWriter: c.Writer, rc: rc, once: once}
		c.Next()

		if c.Writer.Status() < http.StatusBadRequest {
			once.Do(rc.Flush)
		}
	}
}
