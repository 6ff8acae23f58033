package controller

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/session"
	"github.com/william-ls-liu/evaluating-psi/internal/repositories/sql/trial"
	"github.com/william-ls-liu/evaluating-psi/pkg/api"
	"github.com/william-ls-liu/evaluating-psi/pkg/infra"
)

type History interface {
	ListSessions(ctx *gin.Context)
	GetSession(ctx *gin.Context)
}

var (
	history History
	once    sync.Once
)

type HistoryController struct {
	Sessions session.Repository
	Trials   trial.Repository
}

func NewController() History {
	if history == nil {
		once.Do(func() {
			conn, err := infra.SQL.GetConnection()
			if err != nil {
				log.Panic().Err(err).Msg("DB connection not initialized")
			}
			sqlConn := conn.(*infra.SQLConnection)

			sessions, err := session.NewRepository(sqlConn)
			if err != nil {
				log.Panic().Err(err).Msg("Failed to build session repository")
			}
			trials, err := trial.NewRepository(sqlConn)
			if err != nil {
				log.Panic().Err(err).Msg("Failed to build trial repository")
			}
			history = &HistoryController{Sessions: sessions, Trials: trials}
		})
	}
	return history
}

func (h *HistoryController) ListSessions(ctx *gin.Context) {
	sessions, err := h.Sessions.GetAll()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sessions)
}

// SessionDetail is one visit with everything saved during it.
type SessionDetail struct {
	Session *session.Session `json:"session"`
	Trials  []trial.Trial    `json:"trials"`
}

func (h *HistoryController) GetSession(ctx *gin.Context) {
	id := ctx.Param("id")

	s, err := h.Sessions.GetByID(id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	trials, err := h.Trials.GetBySession(id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, SessionDetail{Session: s, Trials: trials})
}

func respondError(ctx *gin.Context, err error) {
	apiErr := apiError(err)
	ctx.Error(apiErr)
	ctx.JSON(api.StatusOf(apiErr), apiErr)
}

func apiError(err error) *api.Error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return api.NewNotFoundError("session not found")
	}
	return api.NewInternalError(err.Error())
}
