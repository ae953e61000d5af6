package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Interview/internal/adapters/signal"
	"github.com/dkeye/Interview/internal/app/hub"
	"github.com/dkeye/Interview/internal/config"
	"github.com/dkeye/Interview/internal/core"
	"github.com/dkeye/Interview/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionUserKey = "user_id"

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// UserMiddleware resolves the caller's user id from ?user_id= (remembered
// in the session) or from the session alone.
func UserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		id := c.Query(sessionUserKey)
		if id != "" {
			if stored, _ := sess.Get(sessionUserKey).(string); stored != id {
				sess.Set(sessionUserKey, id)
				if err := sess.Save(); err != nil {
					log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
				}
			}
		} else {
			id, _ = sess.Get(sessionUserKey).(string)
		}
		if id != "" {
			c.Set(sessionUserKey, id)
		}
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, h *hub.Hub, signalCtl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("InterviewSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	handlers := &Handlers{Hub: h}
	api := r.Group("/api")
	api.GET("/rooms", handlers.ListRooms)
	api.GET("/presence/:user_id", handlers.GetPresence)
	api.GET("/interviews/:room_id", handlers.GetInterview)

	api.GET("/ws/signal", UserMiddleware(), func(c *gin.Context) {
		user, err := domain.NewUser(c.GetString(sessionUserKey), "")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid user_id"})
			return
		}
		sid := core.SessionID(uuid.NewString())
		log.Info().Str("module", "adapters.http").Str("sid", string(sid)).Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		signalCtl.HandleSignal(ctx, c, sid, user.ID)
	})

	return r
}
