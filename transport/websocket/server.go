package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eduplay/boardsync-backend/internal/engine"
	"github.com/eduplay/boardsync-backend/internal/entity"
	"github.com/eduplay/boardsync-backend/internal/usecase"
)

const (
	writeDeadline = 5 * time.Second
	outQueueSize  = 16
)

type client struct {
	conn      *websocket.Conn
	out       chan []byte
	sessionID string
	teamID    string
}

// Server accepts device connections, dispatches their actions to the
// session engines and pushes full-state updates to every connection of a
// session whenever its engine applies a change.
type Server struct {
	logger   *slog.Logger
	manager  *usecase.SessionManager
	upgrader websocket.Upgrader

	roomsMutex sync.RWMutex
	rooms      map[string]map[*client]struct{}

	handlers map[string]func(ctx context.Context, cl *client, msg *Message) error
}

func New(logger *slog.Logger, manager *usecase.SessionManager) *Server {
	server := &Server{
		logger:  logger.With("component", "websocket"),
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rooms:    make(map[string]map[*client]struct{}),
		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers["session:create"] = server.handleCreateSession
	server.handlers["session:join"] = server.handleJoinSession
	server.handlers["team:add"] = server.handleAddTeam
	server.handlers["member:add"] = server.handleAddMember
	server.handlers["member:rotate"] = server.handleRotateMember
	server.handlers["game:start"] = server.handleStartGame
	server.handlers["game:pause"] = server.handlePauseGame
	server.handlers["game:resume"] = server.handleResumeGame
	server.handlers["game:roll"] = server.handleRollDice
	server.handlers["game:land"] = server.handleLandOnCell
	server.handlers["game:selection"] = server.handleSelection
	server.handlers["game:reasoning"] = server.handleReasoning
	server.handlers["game:submit"] = server.handleSubmitResponse
	server.handlers["game:reveal"] = server.handleRevealResponses
	server.handlers["game:evaluate"] = server.handleEvaluate
	server.handlers["game:apply"] = server.handleApplyScoringResult
	server.handlers["game:advance"] = server.handleAdvanceTurn
	server.handlers["game:dismiss"] = server.handleDismissScorePopup
	server.handlers["game:reset"] = server.handleResetGame
	server.handlers["game:end"] = server.handleEndGame

	return server
}

// Start runs the WebSocket server until the context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeDeadline)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	cl := &client{
		conn: conn,
		out:  make(chan []byte, outQueueSize),
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for {
			select {
			case <-connCtx.Done():
				return
			case body, ok := <-cl.out:
				if !ok {
					return
				}

				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	log.Info("connection established")

	for {
		_, body, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err = json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[msg.Action]
		if !ok {
			that.sendError(cl, msg.Action, "unknown action")
			continue
		}

		if err = handler(connCtx, cl, &msg); err != nil {
			log.Error("failed to handle message", "action", msg.Action, "error", err)
			that.sendError(cl, msg.Action, err.Error())
		}
	}

	that.leaveRoom(cl)
	log.Info("connection closed")
}

// joinRoom registers the connection for a session's broadcasts. The first
// connection of a session installs the engine's broadcast hook.
func (that *Server) joinRoom(cl *client, sessionID string, eng *engine.Engine) {
	that.roomsMutex.Lock()
	defer that.roomsMutex.Unlock()

	cl.sessionID = sessionID

	room, ok := that.rooms[sessionID]
	if !ok {
		room = make(map[*client]struct{})
		that.rooms[sessionID] = room

		eng.SetOnApply(func(session *entity.Session, state *entity.GameState) {
			that.broadcast(sessionID, session, state)
		})
	}

	room[cl] = struct{}{}
}

func (that *Server) leaveRoom(cl *client) {
	if cl.sessionID == "" {
		return
	}

	that.roomsMutex.Lock()
	defer that.roomsMutex.Unlock()

	if room, ok := that.rooms[cl.sessionID]; ok {
		delete(room, cl)
		if len(room) == 0 {
			delete(that.rooms, cl.sessionID)
		}
	}
}

// broadcast pushes the full current state to every connection of the
// session. The engine invokes this with its lock held, so the payload is
// marshaled once here and only queued to the connections.
func (that *Server) broadcast(sessionID string, session *entity.Session, state *entity.GameState) {
	body, err := json.Marshal(Response{
		Action:  actionStateUpdate,
		Session: session,
		State:   state,
	})
	if err != nil {
		that.logger.Error("failed to marshal state update", "error", err)
		return
	}

	that.roomsMutex.RLock()
	defer that.roomsMutex.RUnlock()

	for cl := range that.rooms[sessionID] {
		select {
		case cl.out <- body:
		default:
			// Slow consumer; it will catch up on the next update.
		}
	}
}

func (that *Server) send(cl *client, response Response) {
	body, err := json.Marshal(response)
	if err != nil {
		that.logger.Error("failed to marshal response", "error", err)
		return
	}

	select {
	case cl.out <- body:
	default:
	}
}

func (that *Server) sendError(cl *client, action, message string) {
	that.send(cl, Response{Action: action, Error: message})
}
