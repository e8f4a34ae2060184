package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"clinic-controlplane/pkg/config"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ProvideHTTPServer = fx.Module("http.server",
	fx.Provide(NewHttpServer),
	fx.Invoke(Run),
)

type Server struct {
	server   *http.Server
	tlsMutex sync.RWMutex
	cert     *tls.Certificate
	certPath string
	keyPath  string
	watcher  *fsnotify.Watcher
}

type Params struct {
	fx.In
	Config  *config.Config
	Handler *gin.Engine
}

func NewHttpServer(p Params) (*Server, error) {
	cfg := p.Config
	srv := &Server{
		server: &http.Server{
			Addr:         normalizeAddr(cfg.Server.Addr),
			Handler:      p.Handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		certPath: cfg.TLS.CertPath,
		keyPath:  cfg.TLS.KeyPath,
	}

	if cfg.TLS.Enable {
		if err := srv.reloadCert(); err != nil {
			return nil, err
		}

		srv.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
				srv.tlsMutex.RLock()
				defer srv.tlsMutex.RUnlock()

				if srv.cert == nil {
					return nil, fmt.Errorf("no TLS cert loaded")
				}

				return srv.cert, nil
			},
		}
	}

	return srv, nil
}

// reloadCert swaps in the key pair on disk. A broken pair keeps the
// previous certificate in service.
func (s *Server) reloadCert() error {
	cert, err := tls.LoadX509KeyPair(s.certPath, s.keyPath)
	if err != nil {
		zap.L().Error("failed to reload TLS cert", zap.Error(err))
		return err
	}
	s.tlsMutex.Lock()
	s.cert = &cert
	s.tlsMutex.Unlock()
	zap.L().Info("TLS certificate reloaded")
	return nil
}

func (s *Server) currentCert() *tls.Certificate {
	s.tlsMutex.RLock()
	defer s.tlsMutex.RUnlock()
	return s.cert
}

func (s *Server) watchTLSFiles() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.certPath); err != nil {
		_ = watcher.Close()
		return err
	}
	if err := watcher.Add(s.keyPath); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					_ = s.reloadCert()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				zap.L().Error("watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func Run(lc fx.Lifecycle, srv *Server) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.server.Addr)
			if err != nil {
				return err
			}

			if srv.server.TLSConfig != nil {
				if err := srv.watchTLSFiles(); err != nil {
					zap.L().Warn("TLS hot reload disabled", zap.Error(err))
				}
				zap.L().Info("Starting HTTPS server", zap.String("addr", ln.Addr().String()))
				ln = tls.NewListener(ln, srv.server.TLSConfig)
			} else {
				zap.L().Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
			}

			go func() {
				if err := srv.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					zap.L().Error("HTTP server exited", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			zap.L().Info("Shutting down HTTP server gracefully...")
			if srv.watcher != nil {
				_ = srv.watcher.Close()
			}
			return srv.server.Shutdown(ctx)
		},
	})
}
