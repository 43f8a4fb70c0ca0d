package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/optincome/internal/api"
	"github.com/wonny/optincome/internal/api/handlers"
	"github.com/wonny/optincome/internal/realtime"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 스크리닝 결과를 조회하는 REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 실행 이력 / 후보 / 추천 조회 엔드포인트 제공
- WebSocket으로 실행 완료 이벤트 전송
- --schedule: 스케줄러를 같은 프로세스에서 실행

Endpoints:
  GET  /health                                     - Health check
  GET  /ws/runs                                    - Run event stream (WebSocket)
  GET  /api/v1/runs                                - 실행 이력
  GET  /api/v1/runs/latest                         - 최근 실행
  GET  /api/v1/runs/{id}                           - 실행 결과
  GET  /api/v1/runs/{id}/candidates                - 후보 (ticker/strategy/bucket 필터)
  GET  /api/v1/runs/{id}/recommendations/{put|call} - 추천 판정

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080 --schedule`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiSchedule bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default $PORT)")
	apiCmd.Flags().BoolVar(&apiSchedule, "schedule", false, "run the screening scheduler in-process")
	apiCmd.Flags().IntVar(&retentionDays, "retention-days", 30, "report retention in days when --schedule is set")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	PrintHeader("Options Screener API Server")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	store, err := a.runStore(ctx)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(a.log)
	defer hub.Close()

	runHandler := handlers.NewRunHandler(store, a.log)
	router := api.NewRouter(runHandler, hub, a.log)
	server := api.New(a.cfg, a.log, router)

	if apiSchedule {
		sched, err := initScheduler(ctx, a, hub)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
		a.log.WithField("jobs", sched.GetAllJobs()).Info("Scheduler started in-process")
	}

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /ws/runs")
	fmt.Println("  GET  /api/v1/runs")
	fmt.Println("  GET  /api/v1/runs/latest")
	fmt.Println("  GET  /api/v1/runs/{id}")
	fmt.Println("  GET  /api/v1/runs/{id}/candidates")
	fmt.Println("  GET  /api/v1/runs/{id}/recommendations/{strategy}")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
