package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/swgdash/internal/game"
	"github.com/kiliankoe/swgdash/internal/presenter"
	"github.com/rs/zerolog/log"
)

type ConnCtx struct {
	Code  string
	Token string
}

// Emitter is the part of socketio.Conn the server pushes through.
type Emitter interface {
	ID() string
	Emit(event string, v ...interface{})
}

type Server struct {
	Sessions *game.Manager

	mu      sync.Mutex
	members map[string]map[string]Emitter // sessionCode -> socketID -> conn
}

func New(m *game.Manager) *Server {
	srv := &Server{Sessions: m, members: make(map[string]map[string]Emitter)}
	m.OnCreate(srv.attach)
	m.OnRemove(srv.detach)
	return srv
}

// attach pushes every snapshot of s, and the cues it implies, to the
// connections bound to s. Timer driven reveals arrive the same way.
func (srv *Server) attach(s *game.Session) {
	code := s.Code
	s.Subscribe(func(snap game.Snapshot) {
		srv.broadcast(code, "game:state", snap)
		for _, cue := range presenter.CuesFor(snap) {
			srv.broadcast(code, "game:cue", cue)
		}
	})
}

// detach tells the connections still bound to a removed session that it is
// gone and forgets them.
func (srv *Server) detach(s *game.Session) {
	srv.mu.Lock()
	conns := srv.members[s.Code]
	delete(srv.members, s.Code)
	srv.mu.Unlock()
	for _, c := range conns {
		srv.err(c, game.ErrSessionNotFound)
	}
	if len(conns) > 0 {
		log.Info().Str("code", s.Code).Int("conns", len(conns)).Msg("session detached")
	}
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "game:create", func(s socketio.Conn) map[string]any {
		return srv.create(s)
	})

	io.OnEvent("/", "game:resume", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		Token       string `json:"token"`
	}) map[string]any {
		return srv.resume(s, payload.SessionCode, payload.Token)
	})

	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		return srv.act(s, "game:start", (*game.Session).Start)
	})

	io.OnEvent("/", "game:select", func(s socketio.Conn, payload struct {
		Move string `json:"move"`
	}) map[string]any {
		return srv.act(s, "game:select", func(sess *game.Session) (game.Snapshot, error) {
			m, err := game.ParseMove(payload.Move)
			if err != nil {
				return game.Snapshot{}, err
			}
			return sess.SelectMove(m)
		})
	})

	io.OnEvent("/", "game:playAgain", func(s socketio.Conn) map[string]any {
		return srv.act(s, "game:playAgain", (*game.Session).PlayAgain)
	})

	io.OnEvent("/", "game:reset", func(s socketio.Conn) map[string]any {
		return srv.act(s, "game:reset", (*game.Session).ResetScoreboard)
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

type conn interface {
	Emitter
	Context() interface{}
	SetContext(v interface{})
}

func (srv *Server) create(s conn) map[string]any {
	if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
		srv.removeMember(ctx.Code, s)
	}
	code, token, sess := srv.Sessions.Create()
	s.SetContext(&ConnCtx{Code: code, Token: token})
	srv.addMember(code, s)
	log.Info().Str("sid", s.ID()).Str("code", code).Msg("game:create")
	snap := sess.Snapshot()
	s.Emit("game:state", snap)
	for _, cue := range presenter.CuesFor(snap) {
		s.Emit("game:cue", cue)
	}
	return map[string]any{"sessionCode": code, "playerToken": token}
}

func (srv *Server) resume(s conn, code, token string) map[string]any {
	sess, err := srv.Sessions.Authorize(code, token)
	if err != nil {
		return srv.err(s, err)
	}
	s.SetContext(&ConnCtx{Code: code, Token: token})
	srv.addMember(code, s)
	log.Info().Str("sid", s.ID()).Str("code", code).Msg("game:resume")
	s.Emit("game:state", sess.Snapshot())
	return map[string]any{"ok": true}
}

// act runs one transition for the session bound to s. The resulting
// snapshot reaches clients through the session subscriber.
func (srv *Server) act(s conn, name string, fn func(*game.Session) (game.Snapshot, error)) map[string]any {
	ctx, _ := s.Context().(*ConnCtx)
	if ctx == nil || ctx.Code == "" {
		return srv.err(s, game.ErrSessionNotFound)
	}
	sess, err := srv.Sessions.Authorize(ctx.Code, ctx.Token)
	if err != nil {
		return srv.err(s, err)
	}
	snap, err := fn(sess)
	if err != nil {
		log.Debug().Str("code", ctx.Code).Str("event", name).Err(err).Msg("action rejected")
		return srv.err(s, err)
	}
	log.Info().Str("code", ctx.Code).Str("event", name).Uint64("version", snap.Version).Msg(name)
	return map[string]any{"ok": true, "version": snap.Version}
}

func (srv *Server) addMember(code string, c Emitter) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]Emitter)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c Emitter) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, code)
		}
	}
}

func (srv *Server) broadcast(code, event string, v any) {
	srv.mu.Lock()
	conns := make([]Emitter, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		conns = append(conns, c)
	}
	srv.mu.Unlock()
	for _, c := range conns {
		c.Emit(event, v)
	}
}

func (srv *Server) err(s Emitter, err error) map[string]any {
	code := game.ErrorCode(err)
	s.Emit("error", map[string]any{"code": code, "message": err.Error()})
	return map[string]any{"error": code}
}
