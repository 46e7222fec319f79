package cors

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Policy describes the cross-origin requests the API answers. An empty
// Origins list allows any origin.
type Policy struct {
	Origins        []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAge         time.Duration
}

// New returns a CORS middleware. Allowed methods are read from routes the
// first time a request arrives, so the middleware can be installed before the
// routes are mounted.
func New(policy Policy, routes func() gin.RoutesInfo) gin.HandlerFunc {
	allowAll := len(policy.Origins) == 0
	origins := make(map[string]struct{}, len(policy.Origins))
	for _, origin := range policy.Origins {
		origins[strings.TrimRight(origin, "/")] = struct{}{}
	}
	allowHeaders := strings.Join(policy.AllowedHeaders, ", ")
	exposeHeaders := strings.Join(policy.ExposedHeaders, ", ")
	maxAge := strconv.Itoa(int(policy.MaxAge / time.Second))

	var (
		once    sync.Once
		methods string
	)

	return func(c *gin.Context) {
		once.Do(func() {
			methods = strings.Join(Methods(routes()), ", ")
		})

		h := c.Writer.Header()
		if origin := c.GetHeader("Origin"); origin != "" {
			if _, ok := origins[strings.TrimRight(origin, "/")]; allowAll || ok {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		} else if allowAll {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Add("Vary", "Origin")
		h.Set("Access-Control-Allow-Methods", methods)
		if allowHeaders != "" {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
		}
		if exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if policy.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", maxAge)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Methods lists the distinct HTTP methods of the mounted routes, sorted, with
// OPTIONS added for preflight requests.
func Methods(routes gin.RoutesInfo) []string {
	seen := map[string]struct{}{http.MethodOptions: {}}
	for _, route := range routes {
		seen[route.Method] = struct{}{}
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}
