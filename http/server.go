// Package http 提供HTTP服务器功能
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	MaxBodyBytes   int64
	AllowedOrigins []string
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           5000,
		Timeout:        30 * time.Second,
		MaxBodyBytes:   1 << 20,
		AllowedOrigins: []string{"*"},
	}
}

// NewHandler 创建带中间件的处理器
func NewHandler(config ServerConfig) http.Handler {
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	RegisterPageHandlers(mux)
	RegisterWebSocketHandlers(mux, config)

	// 创建中间件链
	chain := Chain(
		RecoveryMiddleware,                    // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware,                      // 2. 日志中间件
		SecurityHeadersMiddleware,             // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins), // 4. CORS中间件
		TimeoutMiddleware(config.Timeout),     // 5. 超时中间件
		RequestSizeMiddleware(config.MaxBodyBytes),
	)

	return chain(mux)
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig) *Server {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           NewHandler(config),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Shutdown不会关闭已劫持的连接
	server.RegisterOnShutdown(closeWebSockets)

	return &Server{
		server: server,
		config: config,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))
	logger.Info("WebSocket endpoint", zap.String("url", fmt.Sprintf("ws://localhost%s/ws/predict", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}
