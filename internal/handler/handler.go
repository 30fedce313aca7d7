package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/allocation"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/cloudsync"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/config"
	"github.com/sysu-ecnc-dev/site-dispatch/backend/internal/repository"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	translator  ut.Translator
	mailChannel *amqp.Channel
	engine      *allocation.Engine
	sync        *cloudsync.Coordinator

	// 启动时从配置计算好的口令哈希
	dataPassHash  []byte
	cloudPassHash []byte

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, mailCh *amqp.Channel, engine *allocation.Engine, sync *cloudsync.Coordinator) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	dataPassHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Passcode.Data), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	cloudPassHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Passcode.Cloud), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		translator:  trans,
		mailChannel: mailCh,
		engine:      engine,
		sync:        sync,

		dataPassHash:  dataPassHash,
		cloudPassHash: cloudPassHash,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 口令认证
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/unlock", h.Unlock)
		r.Post("/lock", h.Lock)
	})

	// 看板读取不需要口令
	h.Mux.Route("/board", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Get("/search", h.SearchPeople)
		r.Get("/lunch-summary", h.GetLunchSummary)
		r.Get("/sites/{id}/groups", h.GetSiteGroups)
	})

	// 日常配置操作同样不需要口令
	h.Mux.Route("/allocation", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSessionStatus)
			r.Post("/", h.BeginSession)
			r.Post("/complete", h.CompleteSession)
			r.Post("/rollback", h.RollbackSession)
		})
		r.Route("/move", func(r chi.Router) {
			r.Get("/", h.GetMoveStatus)
			r.Post("/start", h.StartMove)
			r.Post("/site", h.PickMoveSite)
			r.Post("/group", h.PickMoveGroup)
			r.Post("/cancel", h.CancelMove)
		})
		r.Post("/groups/vehicle", h.ChangeGroupVehicle)
		r.Post("/groups/reorder", h.ReorderGroup)
	})

	h.Mux.Route("/people/{id}", func(r chi.Router) {
		r.Use(h.person)
		r.Post("/driver", h.ToggleDriver)
		r.Post("/lunch", h.ToggleLunch)
		r.Post("/lunch-order", h.SetLunchOrder)
		r.Post("/offduty", h.MoveToOffDuty)
	})

	// 数据管理必须先用数据口令解锁
	h.Mux.Route("/data", func(r chi.Router) {
		r.Use(h.requireScope(ScopeData))

		r.Post("/sites", h.CreateSite)
		r.Delete("/sites/{id}", h.DeleteSite)
		r.Post("/vehicles", h.CreateVehicle)
		r.Delete("/vehicles/{id}", h.DeleteVehicle)
		r.Post("/people", h.CreatePerson)
		r.Delete("/people/{id}", h.DeletePerson)

		r.Get("/export", h.ExportData)
		r.Post("/import", h.ImportData)
		r.Post("/restore-backup", h.RestoreBackup)
	})

	// 远端同步管理必须先用云端口令解锁
	h.Mux.Route("/cloud", func(r chi.Router) {
		r.Use(h.requireScope(ScopeCloud))

		r.Get("/status", h.GetCloudStatus)
		r.Put("/config", h.UpdateCloudConfig)
	})
}
