// Package server 提供 EIP-712 哈希、校验与签名的 HTTP 接口。
package server

import (
	"crypto/ecdsa"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/betbot/typedsig/pkg/eip712"
	"github.com/betbot/typedsig/pkg/logger"
)

const (
	headerRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"

	defaultMaxBodyBytes = 1 << 20
)

type Config struct {
	// Signer 为空时 /sign 返回 503
	Signer       *ecdsa.PrivateKey
	MaxBodyBytes int64
}

type Server struct {
	cfg    Config
	signer *common.Address
}

func New(cfg Config) (*Server, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	s := &Server{cfg: cfg}
	if cfg.Signer != nil {
		addr, err := eip712.Address(cfg.Signer)
		if err != nil {
			return nil, err
		}
		s.signer = &addr
	}
	return s, nil
}

// SignerAddress 已配置签名者的地址
func (s *Server) SignerAddress() (common.Address, bool) {
	if s.signer == nil {
		return common.Address{}, false
	}
	return *s.signer, true
}

func (s *Server) Router() http.Handler {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(), s.limitBody())

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api/v1")
	typed := api.Group("/typed-data")
	typed.POST("/hash", s.handleHash)
	typed.POST("/verify", s.handleVerify)
	typed.POST("/sign", s.handleSign)

	return r
}

// requestID 透传或生成 X-Request-ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString(ctxRequestID),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.WithField("error", c.Errors.String()).Warn("request failed")
			return
		}
		entry.Info("request")
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		}
		c.Next()
	}
}
