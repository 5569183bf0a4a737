package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Scrimzay/conquestsim/internal/logs"
	"github.com/Scrimzay/conquestsim/internal/types"
	"github.com/Scrimzay/conquestsim/internal/world"
)

const maxFrameSize = 4096

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// bindings tracks which players are held by a live connection. A player is
// bound to at most one connection, which owns its Leave.
type bindings struct {
	mu  sync.Mutex
	ids map[world.PlayerID]struct{}
}

func newBindings() *bindings {
	return &bindings{ids: make(map[world.PlayerID]struct{})}
}

// bind reports false if id is already held.
func (b *bindings) bind(id world.PlayerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.ids[id]; ok {
		return false
	}
	b.ids[id] = struct{}{}
	return true
}

func (b *bindings) release(id world.PlayerID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.ids, id)
}

// HandleWebsocket streams snapshots and accepts {"action": ...} commands.
// A connection opened with ?player=<id>, or one that joins in-band, is bound
// to that player, who is removed from the world when the connection drops.
// A connection holds at most one player and a player at most one connection.
func HandleWebsocket(hub *Hub, gameWorld *world.World, dispatcher *Dispatcher, limits *limiterSet) gin.HandlerFunc {
	bound := newBindings()
	return func(c *gin.Context) {
		enc, ok := ParseEncoding(c.Query("encoding"))
		if !ok {
			c.JSON(http.StatusBadRequest, types.NewResponse(types.CodeReqParamError, nil).WithDetail("unknown encoding"))
			return
		}
		player := world.PlayerID(c.Query("player"))
		if player != world.NoOwner {
			if _, ok := gameWorld.Player(player); !ok {
				c.JSON(http.StatusBadRequest, types.NewResponse(types.CodeReqParamError, nil).WithDetail("unknown player"))
				return
			}
			if !bound.bind(player) {
				resp := types.NewResponse(types.CodeRejected, nil).WithDetail("player already connected")
				c.JSON(resp.Code.HTTPStatus(), resp)
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logs.Warn("ws upgrade failed", zap.Error(err))
			if player != world.NoOwner {
				bound.release(player)
			}
			return
		}

		client := newClient(conn, enc, player)
		go client.writePump()
		if !hub.Register(client) {
			client.close()
			if player != world.NoOwner {
				bound.release(player)
			}
			return
		}
		logs.Info("ws connected", zap.String("player", string(player)), zap.String("encoding", string(enc)))

		defer func() {
			hub.Unregister(client)
			if client.player != world.NoOwner {
				bound.release(client.player)
				if gameWorld.Leave(client.player) {
					dispatcher.onChange()
				}
			}
			logs.Info("ws disconnected", zap.String("player", string(client.player)))
		}()

		readLoop(client, dispatcher, limits.newLimiter(), bound)
	}
}

// readLoop owns client.player once the connection is registered.
func readLoop(client *Client, dispatcher *Dispatcher, limiter *rate.Limiter, bound *bindings) {
	conn := client.conn
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logs.Debug("ws read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var env types.Envelope
		var resp types.Response
		switch {
		case json.Unmarshal(msg, &env) != nil:
			resp = types.NewResponse(types.CodeReqParamError, nil).WithDetail("malformed frame")
			resp.Action = types.ActionResult
		case !limiter.Allow():
			resp = types.NewResponse(types.CodeRateLimited, nil)
			resp.Action = types.ActionResult
			resp.Request = env.Action
		case env.Action == types.ActionJoin && client.player != world.NoOwner:
			resp = types.NewResponse(types.CodeRejected, nil).WithDetail("connection already holds a player")
			resp.Action = types.ActionResult
			resp.Request = env.Action
		default:
			resp = dispatcher.Dispatch(env.Action, msg)
			if env.Action == types.ActionJoin && resp.Code == types.CodeOK {
				if data, ok := resp.Data.(map[string]any); ok {
					if id, _ := data["id"].(world.PlayerID); id != world.NoOwner && bound.bind(id) {
						client.player = id
					}
				}
			}
		}

		f, err := replyFrame(resp)
		if err != nil {
			logs.Error("reply encode failed", zap.Error(err))
			continue
		}
		client.enqueue(f)
	}
}
