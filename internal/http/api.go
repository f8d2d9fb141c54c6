package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wookie-books/internal/apperror"
	"wookie-books/internal/service"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users        service.UserService
	books        service.BookService
	logger       *logrus.Logger
	jwtSecret    []byte
	tokenTTL     time.Duration
	loginLimiter *rate.Limiter
}

func NewHandler(users service.UserService, books service.BookService, logger *logrus.Logger, jwtSecret string, tokenTTL time.Duration, loginRate rate.Limit, loginBurst int) *Handler {
	return &Handler{
		users:        users,
		books:        books,
		logger:       logger,
		jwtSecret:    []byte(jwtSecret),
		tokenTTL:     tokenTTL,
		loginLimiter: rate.NewLimiter(loginRate, loginBurst),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.requestLogger())

	users := router.Group("/users")
	{
		users.POST("/register/", h.loginRateLimit(), h.register)
		users.POST("/login/", h.loginRateLimit(), h.login)
		users.GET("/list/", h.authRequired(), h.listUsers)
	}

	api := router.Group("/api")
	{
		api.GET("/books/", h.listBooks)
		api.GET("/books/:id/", h.getBook)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		my := api.Group("/my_books", h.authRequired())
		{
			my.GET("/", h.listMyBooks)
			my.POST("/", h.createBook)
			my.GET("/list_unpublish/", h.listMyUnpublishedBooks)
			my.PUT("/update/:id/", h.updateMyBook)
			my.PATCH("/update/:id/", h.updateMyBook)
			my.DELETE("/unpublish/:id/", h.unpublishMyBook)
			my.GET("/:id/", h.getMyBook)
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Info("request")
	}
}

// loginRateLimit throttles credential endpoints against brute forcing.
func (h *Handler) loginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.loginLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// writeError maps application errors onto their HTTP status. Anything that is
// not an AppError is logged and reported as a bare 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.StatusCode() >= http.StatusInternalServerError {
			h.logger.WithError(err).Error("request failed")
		}
		c.AbortWithStatusJSON(appErr.StatusCode(), gin.H{"error": appErr.Message})
		return
	}

	h.logger.WithError(err).Error("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
