package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/swgdash/internal/game"
	"github.com/kiliankoe/swgdash/internal/presenter"
	"github.com/rs/zerolog/log"
)

const TokenHeader = "X-Player-Token"

var errBadBody = errors.New("malformed request body")

type API struct {
	Sessions *game.Manager
	// HasAsset reports whether a sprite image is available to the browser.
	HasAsset func(path string) bool
}

func (a *API) Register(r gin.IRouter) {
	r.GET("/api/moves", a.moves)
	r.POST("/api/session", a.createSession)
	r.GET("/api/session/:code", a.getSession)
	r.GET("/api/session/:code/rounds", a.rounds)
	r.POST("/api/session/:code/start", a.action((*game.Session).Start))
	r.POST("/api/session/:code/select", a.selectMove)
	r.POST("/api/session/:code/play-again", a.action((*game.Session).PlayAgain))
	r.POST("/api/session/:code/reset", a.action((*game.Session).ResetScoreboard))
}

func (a *API) moves(c *gin.Context) {
	c.JSON(http.StatusOK, presenter.Sprites(a.HasAsset))
}

func (a *API) createSession(c *gin.Context) {
	code, token, sess := a.Sessions.Create()
	c.JSON(http.StatusOK, gin.H{"sessionCode": code, "playerToken": token, "state": sess.Snapshot()})
}

func (a *API) getSession(c *gin.Context) {
	sess, err := a.Sessions.Get(c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (a *API) rounds(c *gin.Context) {
	sess, err := a.Sessions.Authorize(c.Param("code"), c.GetHeader(TokenHeader))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": sess.History(), "score": sess.Score()})
}

func (a *API) action(fn func(*game.Session) (game.Snapshot, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := a.Sessions.Authorize(c.Param("code"), c.GetHeader(TokenHeader))
		if err != nil {
			fail(c, err)
			return
		}
		snap, err := fn(sess)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": snap, "cues": presenter.CuesFor(snap)})
	}
}

func (a *API) selectMove(c *gin.Context) {
	var req struct {
		Move string `json:"move"`
	}
	// an empty body leaves Move empty, which ParseMove rejects
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	a.action(func(s *game.Session) (game.Snapshot, error) {
		m, err := game.ParseMove(req.Move)
		if err != nil {
			return game.Snapshot{}, err
		}
		return s.SelectMove(m)
	})(c)
}

func fail(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrRevealInProgress):
		status = http.StatusConflict
	}
	log.Debug().Str("path", c.FullPath()).Err(err).Msg("request rejected")
	c.AbortWithStatusJSON(status, gin.H{"error": game.ErrorCode(err), "message": err.Error()})
}
