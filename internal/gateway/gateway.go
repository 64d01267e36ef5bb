package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	ctxRequestID = "request_id"
	ctxUserID    = "user_id"
)

// Gateway validates client requests and forwards valid ones to the server.
type Gateway struct {
	cfg     config.GatewayConfig
	backend *BackendClient
	limiter domain.RateLimiter
	ready   ReadinessProbe
	logger  zerolog.Logger
	now     func() time.Time

	engine *gin.Engine
	server *http.Server
}

// New builds the gateway; limiter and ready may be nil.
func New(cfg config.GatewayConfig, backend *BackendClient, limiter domain.RateLimiter, ready ReadinessProbe, logger *zerolog.Logger) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		backend: backend,
		limiter: limiter,
		ready:   ready,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	if logger != nil {
		g.logger = logger.With().Str("component", "gateway").Logger()
	}

	gin.SetMode(gin.ReleaseMode)
	useJSONFieldNames()
	g.engine = gin.New()
	g.engine.Use(g.requestID(), g.accessLog(), gin.Recovery())
	_ = g.engine.SetTrustedProxies(nil)

	if len(cfg.AllowOrigins) > 0 {
		g.engine.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowOrigins,
			AllowHeaders:  []string{"Origin", "Content-Type", models.HeaderUserID, models.HeaderRequestID},
			ExposeHeaders: []string{"Content-Length", "Content-Disposition", models.HeaderRequestID},
			AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			MaxAge:        12 * time.Hour,
		}))
	}

	g.routes()

	g.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           g.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return g
}

func (g *Gateway) Handler() http.Handler {
	return g.engine
}

func (g *Gateway) Start() error {
	g.logger.Info().Str("addr", g.server.Addr).Str("backend", g.cfg.ServerURL).Msg("gateway listening")
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	return g.server.Shutdown(ctx)
}

func (g *Gateway) routes() {
	r := g.engine

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/readyz", g.readyz)

	users := r.Group("/users")
	users.POST("", g.createUser)
	users.GET("", g.forwardPlain)
	users.GET("/:id", g.withPathID, g.forwardPlain)
	users.PATCH("/:id", g.withPathID, g.updateUser)
	users.DELETE("/:id", g.withPathID, g.forwardPlain)

	shared := r.Group("", g.requireSharer(), g.rateLimit())

	items := shared.Group("/items")
	items.POST("", g.createItem)
	items.GET("", g.withPage, g.forwardPlain)
	items.GET("/search", g.withPage, g.forwardPlain)
	items.GET("/:id", g.withPathID, g.forwardPlain)
	items.PATCH("/:id", g.withPathID, g.forwardBody)
	items.POST("/:id/comment", g.withPathID, g.addComment)

	bookings := shared.Group("/bookings")
	bookings.POST("", g.createBooking)
	bookings.GET("", g.withState, g.withPage, g.forwardPlain)
	bookings.GET("/owner", g.withState, g.withPage, g.forwardPlain)
	bookings.GET("/owner/export", g.withState, g.forwardPlain)
	bookings.GET("/:id", g.withPathID, g.forwardPlain)
	bookings.PATCH("/:id", g.withPathID, g.decideBooking)

	requests := shared.Group("/requests")
	requests.POST("", g.createRequest)
	requests.GET("", g.forwardPlain)
	requests.GET("/all", g.withPage, g.forwardPlain)
	requests.GET("/:id", g.withPathID, g.forwardPlain)
}

// ---------- middleware ----------

func (g *Gateway) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(models.HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(models.HeaderRequestID, id)
		c.Next()
	}
}

func (g *Gateway) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.ObserveHTTP("gateway", route, status, dur)

		event := g.logger.Info()
		if status >= http.StatusInternalServerError {
			event = g.logger.Error()
		}
		event.
			Str("request_id", c.GetString(ctxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Int("status", status).
			Dur("duration", dur).
			Msg("http request")
	}
}

func (g *Gateway) requireSharer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUserID(c.GetHeader(models.HeaderUserID))
		if err != nil {
			abortInvalid(c, err)
			return
		}
		c.Set(ctxUserID, id)
		c.Next()
	}
}

// rateLimit caps requests per sharer; limiter failures let the request through.
func (g *Gateway) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.limiter == nil || !g.cfg.RateLimit.Enabled {
			c.Next()
			return
		}
		userID := c.GetInt64(ctxUserID)
		allowed, err := g.limiter.CheckRateLimit(c.Request.Context(), userID, g.cfg.RateLimit.Requests, g.cfg.RateLimit.Window)
		if err != nil {
			g.logger.Warn().Err(err).Int64("user_id", userID).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			metrics.IncRateLimited()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (g *Gateway) withPathID(c *gin.Context) {
	if err := parsePathID(c.Param("id")); err != nil {
		abortInvalid(c, err)
		return
	}
	c.Next()
}

func (g *Gateway) withPage(c *gin.Context) {
	if _, err := models.ParsePage(c.Query("from"), c.Query("size")); err != nil {
		abortInvalid(c, err)
		return
	}
	c.Next()
}

func (g *Gateway) withState(c *gin.Context) {
	if _, err := models.ParseState(c.Query("state")); err != nil {
		abortInvalid(c, err)
		return
	}
	c.Next()
}

func abortInvalid(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// ---------- handlers ----------

func (g *Gateway) readyz(c *gin.Context) {
	if g.ready != nil {
		if err := g.ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (g *Gateway) createUser(c *gin.Context) {
	var u models.User
	if !g.bind(c, &u, func() error { return validateNewUser(&u) }) {
		return
	}
	g.forward(c, g.body(c))
}

func (g *Gateway) updateUser(c *gin.Context) {
	var patch models.UserPatch
	if !g.bind(c, &patch, nil) {
		return
	}
	g.forward(c, g.body(c))
}

func (g *Gateway) createItem(c *gin.Context) {
	var it models.Item
	if !g.bind(c, &it, func() error { return validateNewItem(&it) }) {
		return
	}
	g.forward(c, g.body(c))
}

func (g *Gateway) addComment(c *gin.Context) {
	var body models.NewComment
	if !g.bind(c, &body, func() error { return validateText("text", body.Text) }) {
		return
	}
	g.forward(c, g.body(c))
}

func (g *Gateway) createBooking(c *gin.Context) {
	var body models.NewBooking
	if !g.bind(c, &body, func() error { return validateNewBooking(&body, g.now()) }) {
		return
	}
	g.forward(c, g.body(c))
}

func (g *Gateway) decideBooking(c *gin.Context) {
	if err := parseApproved(c.Query("approved")); err != nil {
		abortInvalid(c, err)
		return
	}
	g.forward(c, nil)
}

func (g *Gateway) createRequest(c *gin.Context) {
	var body models.NewItemRequest
	if !g.bind(c, &body, func() error { return validateText("description", body.Description) }) {
		return
	}
	g.forward(c, g.body(c))
}

// bind decodes and validates the JSON body, keeping the raw bytes for
// forwarding. It writes the 400 itself and reports whether to continue.
func (g *Gateway) bind(c *gin.Context, dst any, check func() error) bool {
	if err := c.ShouldBindBodyWith(dst, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	if check != nil {
		if err := check(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return false
		}
	}
	return true
}

func (g *Gateway) body(c *gin.Context) []byte {
	if raw, ok := c.Get(gin.BodyBytesKey); ok {
		if b, ok := raw.([]byte); ok {
			return b
		}
	}
	return nil
}

func (g *Gateway) forwardPlain(c *gin.Context) {
	g.forward(c, nil)
}

// forwardBody passes an unvalidated body through, as for item patches.
func (g *Gateway) forwardBody(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		abortInvalid(c, invalid("cannot read body"))
		return
	}
	g.forward(c, raw)
}

func (g *Gateway) forward(c *gin.Context, body []byte) {
	req := BackendRequest{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		RawQuery:  c.Request.URL.RawQuery,
		RequestID: c.GetString(ctxRequestID),
		Body:      body,
	}
	if id, ok := c.Get(ctxUserID); ok {
		req.UserID = strconv.FormatInt(id.(int64), 10)
	}

	resp, err := g.backend.Forward(c.Request.Context(), req)
	if err != nil {
		g.logger.Error().Err(err).Str("request_id", req.RequestID).Msg("forward failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "backend unavailable"})
		return
	}

	for name := range resp.Header {
		c.Header(name, resp.Header.Get(name))
	}
	c.Status(resp.Status)
	_, _ = c.Writer.Write(resp.Body)
}
