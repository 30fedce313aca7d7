package cloudsync

import (
	"context"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/domain"
)

type Status string

const (
	StatusDisconnected Status = "DISCONNECTED"
	StatusConnecting   Status = "CONNECTING"
	StatusConnected    Status = "CONNECTED"
	StatusError        Status = "ERROR"
)

// Config 是远端文档存储的连接配置
type Config struct {
	Addr        string `json:"addr" validate:"required"`
	Password    string `json:"password"`
	DB          int    `json:"db"`
	DocumentKey string `json:"documentKey" validate:"required"`
	Channel     string `json:"channel" validate:"required"`
}

// DocumentStore 是远端共享文档存储的抽象
type DocumentStore interface {
	// Load 读取当前文档，文档不存在时返回 ok=false
	Load(ctx context.Context) (Document, bool, error)
	// Save 整体覆盖写文档并向其他订阅者广播变更
	Save(ctx context.Context, doc Document) error
	// Subscribe 返回远端变更通知通道，存储关闭后通道关闭
	Subscribe(ctx context.Context) (<-chan Document, error)
	Close() error
}

// Board 是协调器对配置引擎的依赖
type Board interface {
	SessionActive() bool
	Snapshot() domain.BoardData
	ReplaceAll(data domain.BoardData)
	LastUpdateTime() time.Time
}

// Coordinator 在单个 goroutine 里串行处理本地变更、远端变更与配置切换，
// 状态的读写全部经过通道，不需要额外加锁
type Coordinator struct {
	board    Board
	logger   *slog.Logger
	debounce time.Duration

	// 测试时替换为假存储的工厂
	openStore func(ctx context.Context, cfg Config) (DocumentStore, error)

	// 本地落盘回调，应用远端变更后调用
	persist func(data domain.BoardData)

	localCh  chan struct{}
	applyCh  chan applyRequest
	statusCh chan chan Status
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type applyRequest struct {
	cfg   Config
	reply chan error
}

type Options struct {
	Debounce  time.Duration
	OpenStore func(ctx context.Context, cfg Config) (DocumentStore, error)
	Persist   func(data domain.BoardData)
}

const defaultDebounce = 500 * time.Millisecond

func New(board Board, logger *slog.Logger, opts Options) *Coordinator {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.OpenStore == nil {
		opts.OpenStore = openRedisStore
	}
	return &Coordinator{
		board:     board,
		logger:    logger,
		debounce:  opts.Debounce,
		openStore: opts.OpenStore,
		persist:   opts.Persist,
		localCh:   make(chan struct{}, 1),
		applyCh:   make(chan applyRequest),
		statusCh:  make(chan chan Status),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// NotifyLocalChange 报告本地数据发生了变化。
// 可以在任何 goroutine 上调用，多次连续调用会被合并
func (c *Coordinator) NotifyLocalChange() {
	select {
	case c.localCh <- struct{}{}:
	default:
	}
}

// ApplyConfig 切换远端存储配置：断开现有连接，按新配置重连。
// 返回首次连接与加载的结果
func (c *Coordinator) ApplyConfig(ctx context.Context, cfg Config) error {
	req := applyRequest{cfg: cfg, reply: make(chan error, 1)}
	select {
	case c.applyCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status 返回当前同步状态
func (c *Coordinator) Status() Status {
	reply := make(chan Status, 1)
	select {
	case c.statusCh <- reply:
		return <-reply
	case <-c.doneCh:
		return StatusDisconnected
	}
}

// Stop 停止协调器并断开远端连接
func (c *Coordinator) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

// Run 是协调器的主循环，应在独立的 goroutine 上运行
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.doneCh)

	status := StatusDisconnected
	var store DocumentStore
	var remoteCh <-chan Document

	// 本地变更防抖：只在定时器到期时写远端，期间的变更合并为一次
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	// 应用远端变更后，紧随其后的一次本地变更通知是回声，不再写回远端
	suppressEcho := false

	closeStore := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				c.logger.Error("关闭远端存储失败", slog.String("error", err.Error()))
			}
			store = nil
			remoteCh = nil
		}
		if flushTimer != nil {
			flushTimer.Stop()
			flushTimer = nil
			flushCh = nil
		}
	}
	defer closeStore()

	flush := func() {
		if store == nil {
			return
		}
		// 防抖期间可能刚开始了会话，未提交的数据绝不外发
		if c.board.SessionActive() {
			return
		}
		// 从未完成过配置的数据不具备冲突裁决依据，不上传
		updatedAt := c.board.LastUpdateTime()
		if updatedAt.IsZero() {
			return
		}
		doc, err := EncodeDocument(c.board.Snapshot(), updatedAt)
		if err != nil {
			c.logger.Error("编码远端文档失败", slog.String("error", err.Error()))
			status = StatusError
			return
		}
		if err := store.Save(ctx, doc); err != nil {
			c.logger.Error("写入远端文档失败", slog.String("error", err.Error()))
			status = StatusError
			return
		}
		status = StatusConnected
	}

	applyRemote := func(doc Document) {
		// 配置会话进行中不应用远端变更，避免正在修改的数据被覆盖
		if c.board.SessionActive() {
			c.logger.Info("配置会话进行中，跳过远端变更")
			return
		}
		data, err := DecodeDocument(doc)
		if err != nil {
			c.logger.Error("解码远端文档失败", slog.String("error", err.Error()))
			status = StatusError
			return
		}
		// 后写覆盖：远端文档比本地旧时丢弃
		localTime := c.board.LastUpdateTime()
		var remoteTime time.Time
		if data.LastUpdate != nil {
			remoteTime = data.LastUpdate.Time
		}
		if !localTime.IsZero() && remoteTime.Before(localTime) {
			c.logger.Info("丢弃过期的远端变更",
				slog.Time("remote", remoteTime),
				slog.Time("local", localTime),
			)
			return
		}

		suppressEcho = true
		c.board.ReplaceAll(data)
		if c.persist != nil {
			c.persist(data)
		}
		status = StatusConnected
	}

	for {
		select {
		case <-c.localCh:
			if suppressEcho {
				suppressEcho = false
				continue
			}
			if store == nil {
				continue
			}
			// 会话进行中的改动不外发，提交或回滚时的通知会重新触发
			if c.board.SessionActive() {
				continue
			}
			if flushTimer == nil {
				flushTimer = time.NewTimer(c.debounce)
			} else {
				if !flushTimer.Stop() {
					select {
					case <-flushTimer.C:
					default:
					}
				}
				flushTimer.Reset(c.debounce)
			}
			flushCh = flushTimer.C

		case <-flushCh:
			flushCh = nil
			flushTimer = nil
			flush()

		case doc, ok := <-remoteCh:
			if !ok {
				remoteCh = nil
				status = StatusError
				c.logger.Error("远端订阅中断")
				continue
			}
			applyRemote(doc)

		case req := <-c.applyCh:
			closeStore()
			status = StatusConnecting

			newStore, err := c.openStore(ctx, req.cfg)
			if err != nil {
				status = StatusError
				req.reply <- err
				continue
			}
			ch, err := newStore.Subscribe(ctx)
			if err != nil {
				newStore.Close()
				status = StatusError
				req.reply <- err
				continue
			}

			store = newStore
			remoteCh = ch
			status = StatusConnected

			// 连接后立即加载一次远端文档，按与订阅事件相同的规则处理
			doc, exists, err := store.Load(ctx)
			if err != nil {
				status = StatusError
				req.reply <- err
				continue
			}
			if exists {
				applyRemote(doc)
			}
			req.reply <- nil

		case reply := <-c.statusCh:
			reply <- status

		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
