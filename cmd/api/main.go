package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/cloudsync"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/config"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/handler"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/repository"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository 并加载本地数据
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	if err := repo.EnsureSchema(); err != nil {
		logger.Error("无法初始化数据库表", "error", err)
		return
	}

	boardData, err := repo.LoadAll()
	if err != nil {
		logger.Error("无法加载看板数据", "error", err)
		return
	}

	/**********************************************
	 * 创建配置引擎
	 **********************************************/
	engine := allocation.NewEngine(boardData)

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	// 声明队列
	_, err = ch.QueueDeclare(
		"board_mail_queue",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	/**********************************************
	 * 启动同步协调器
	 **********************************************/
	coordinator := cloudsync.New(engine, logger, cloudsync.Options{
		Debounce: time.Duration(cfg.Sync.DebounceMS) * time.Millisecond,
		// 远端变更应用到内存后同步落盘，重启后不丢
		Persist: func(data domain.BoardData) {
			if err := repo.SaveAll(data); err != nil {
				logger.Error("远端变更落盘失败", "error", err)
			}
		},
	})
	engine.SetOnChange(coordinator.NotifyLocalChange)

	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()
	go coordinator.Run(syncCtx)
	defer coordinator.Stop()

	// 有保存过的远端配置就立即连接，没有则保持离线，等待通过接口配置。
	// 连接失败只记日志，看板在离线状态下仍然可用
	remoteCfg, found, err := repo.LoadRemoteConfig()
	if err != nil {
		logger.Error("无法读取远端同步配置", "error", err)
		return
	}
	if !found && cfg.Redis.Host != "" {
		remoteCfg = cloudsync.Config{
			Addr:        fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DocumentKey: cfg.Sync.DocumentKey,
			Channel:     cfg.Sync.Channel,
		}
		found = true
	}
	if found {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := coordinator.ApplyConfig(connectCtx, remoteCfg); err != nil {
			logger.Error("连接远端失败，进入离线模式", "error", err)
		}
		connectCancel()
	}

	/**********************************************
	 * 创建 handler
	 **********************************************/
	handler, err := handler.NewHandler(cfg, repo, ch, engine, coordinator)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	ctx, cancel = context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
