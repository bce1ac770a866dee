package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatepass/internal/auth"
	"gatepass/internal/config"
	"gatepass/internal/gatepass"
	"gatepass/internal/httpmiddleware"
	"gatepass/internal/identity"
	"gatepass/internal/pass"
	"gatepass/internal/store"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if db == nil {
		// A nil handle means the connection string itself did not parse;
		// nothing downstream can work without it.
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisDialTimeout, cfg.RedisOpTimeout)

	loc := cfg.Location()
	repo := gatepass.NewRepository(db.Client)
	ident := identity.NewRepository(db.Client)
	ledger := gatepass.NewService(repo, ident, loc)
	issuer := pass.NewIssuer(ledger, cfg.BaseURL, cfg.LogoPath, loc)

	r := gin.New()

	// Recovery middleware
	r.Use(gin.Recovery())

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting: shared redis window when redis is up, in-memory otherwise
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 2*time.Second)
	if redisClient.Healthy(probeCtx) {
		r.Use(httpmiddleware.NewRedisFixedWindow(redisClient.Client, cfg.RateLimitPerMin, time.Minute).GinMiddleware())
	} else {
		log.Println("redis not reachable, using in-memory rate limiter")
		r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())
	}
	cancelProbe()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Backend running")
	})

	r.POST("/api/login", func(c *gin.Context) {
		var req struct {
			ID       string `json:"id" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "id and password required"})
			return
		}

		user, err := ident.Login(c.Request.Context(), req.ID, req.Password)
		switch {
		case errors.Is(err, identity.ErrUnknownUser):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "User not found"})
			return
		case errors.Is(err, identity.ErrBadCredentials):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Wrong password"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}

		token, exp, err := auth.Issue(user.ID, user.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "token issue failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"user":       user,
			"token":      token,
			"expires_at": exp.Unix(),
		})
	})

	// Pass verification is public: the QR code on a printed pass is scanned
	// without any session.
	r.GET("/api/verify-pass/:id", func(c *gin.Context) {
		view, err := ledger.Verify(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, view)
	})

	r.GET("/api/pass/:id", func(c *gin.Context) {
		doc, filename, err := issuer.Render(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, gatepass.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
				return
			}
			log.Printf("pass render failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "pass render failed"})
			return
		}
		c.Header("Content-Disposition", `inline; filename=`+filename)
		c.Data(http.StatusOK, "application/pdf", doc)
	})

	authGroup := r.Group("/api", auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/exit", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"studentId"`
			Reason    string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		rec, err := ledger.RecordExit(c.Request.Context(), req.StudentID, req.Reason)
		switch {
		case errors.Is(err, gatepass.ErrStudentNotFound):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Student not found"})
			return
		case errors.Is(err, gatepass.ErrAlreadyOut):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "Student already outside"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "log": rec})
	})

	authGroup.POST("/entry", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"studentId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}

		rec, err := ledger.RecordEntry(c.Request.Context(), req.StudentID)
		switch {
		case errors.Is(err, gatepass.ErrNoActiveExit):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": "No active exit"})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "log": rec})
	})

	authGroup.GET("/outside", func(c *gin.Context) {
		list, err := ledger.ListOutside(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		if list == nil {
			list = []gatepass.ExitRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"count": len(list), "data": list})
	})

	authGroup.GET("/stats/today", func(c *gin.Context) {
		count, err := ledger.CountToday(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"todayExits": count})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
