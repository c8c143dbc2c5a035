package server

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/txwatch/api"
	"github.com/customeros/txwatch/config"
	"github.com/customeros/txwatch/dto"
	"github.com/customeros/txwatch/internal/cron"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/repository"
	"github.com/customeros/txwatch/internal/tracing"
	"github.com/customeros/txwatch/internal/utils"
	"github.com/customeros/txwatch/services"
)

const (
	shutdownTimeout = 15 * time.Second
	AppSourceCLI    = "cli"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(cfg *config.Config, txwatchDB *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize jaeger tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(txwatchDB)
	if txwatchDB == nil {
		appLogger.Info("No database configured, notify attempts are kept in memory")
	}

	// Initialize services
	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		return nil, err
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cron.NewCronManager(cfg, appLogger, kubernetesClient(cfg, appLogger), svcs.Processor, repos.TransactionAttemptRepository),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:    ":" + cfg.AppConfig.APIPort,
			Handler: router,
		},
	}, nil
}

// kubernetesClient returns nil outside a cluster, the cron manager then runs without leader election
func kubernetesClient(cfg *config.Config, log logger.Logger) kubernetes.Interface {
	if cfg.AppConfig.LocalDev || cfg.AppConfig.PodNamespace == "" {
		return nil
	}
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Warnf("Not running in a cluster, leader election disabled: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Could not create kubernetes client, leader election disabled: %v", err)
		return nil
	}
	return client
}

// Run starts the scheduler and the HTTP API and blocks until SIGINT or SIGTERM
func (s *Server) Run() error {
	api.RegisterRoutes(s.router, s.services.Processor, s.log, s.config.AppConfig.APIKey)

	s.log.Infof("Polling mailbox %s on schedule %q", s.config.ProviderConfig.MailboxUser, s.config.Cron.CronSchedulePoll)
	if err := s.cronManager.Start(s.config.AppConfig.PodName, s.config.AppConfig.PodNamespace); err != nil {
		return errors.Wrap(err, "failed to start cron manager")
	}

	go func() {
		defer tracing.RecoverAndLogToJaeger(s.log)
		s.log.Infof("Starting HTTP server on port %s", s.config.AppConfig.APIPort)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("HTTP server error: %v", err)
		}
	}()
	s.log.Info("txwatch is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

// RunOnce runs a single cycle, for the once command
func (s *Server) RunOnce(ctx context.Context) (*dto.CycleReport, error) {
	defer s.close()
	return s.services.Processor.RunCycle(utils.SetAppSourceInContext(ctx, AppSourceCLI))
}

func (s *Server) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// stop scheduling first so no new cycle starts, running jobs are awaited
	cronDone := make(chan struct{})
	go func() {
		defer close(cronDone)
		s.cronManager.Stop()
	}()
	select {
	case <-cronDone:
		s.log.Info("Cron manager stopped")
	case <-shutdownCtx.Done():
		s.log.Warn("Cron manager stop timed out")
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	s.close()
	return nil
}

func (s *Server) close() {
	if err := s.services.EventPublisher.Close(); err != nil {
		s.log.Errorf("Error closing event publisher: %v", err)
	}
	if s.tracerCloser != nil {
		s.tracerCloser.Close()
	}
	_ = s.log.Sync()
}
