package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/osuAkatsuki/bancho-core/pkg/protocol"
)

const headerToken = "osu-token"

// headerChoToken is the response header that carries a login's session
// token (or its failure token string) back to the client.
const headerChoToken = "cho-token"

// NewHTTPServer builds the echo front door for srv (§4.H): GET / serves a
// human-readable status line, POST / is the stateful packet-framed
// endpoint every osu! client talks to.
func NewHTTPServer(srv *Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(srv.Log))

	e.GET("/", handleIndex)
	e.POST("/", handleBancho(srv))
	return e
}

func requestLogger(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if log != nil {
				log.Debugw("http request",
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"status", c.Response().Status,
					"duration_ms", time.Since(start).Milliseconds(),
					"remote", c.RealIP(),
				)
			}
			return err
		}
	}
}

func handleIndex(c echo.Context) error {
	return c.String(http.StatusOK, "bancho-core is up.")
}

// handleBancho is the stateful HTTP-POST-framed bancho endpoint (§4.A,
// §4.H). Unauthenticated requests (no osu-token header) are routed to the
// login pipeline; authenticated requests are dispatched against the
// session's packet table and the drained outbound queue is written back.
func handleBancho(srv *Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.NoContent(http.StatusBadRequest)
		}

		token := c.Request().Header.Get(headerToken)
		if token == "" {
			return handleLoginRequest(srv, c, body)
		}

		sess, ok := srv.Sessions.ByToken(token)
		if !ok {
			c.Response().Header().Set(headerToken, "restart")
			body := append(PacketNotification("Server has restarted."), PacketRestart(0)...)
			return c.Blob(http.StatusOK, "application/octet-stream", body)
		}

		sess.Touch(nowFunc())
		dispatchPackets(srv, sess, body)

		c.Response().Header().Set(headerToken, token)
		return c.Blob(http.StatusOK, "application/octet-stream", sess.DrainOutbound())
	}
}

func handleLoginRequest(srv *Server, c echo.Context, body []byte) error {
	req, err := ParseLoginBody(string(body), c.RealIP())
	if err != nil {
		c.Response().Header().Set(headerChoToken, "no")
		return c.Blob(http.StatusOK, "application/octet-stream", PacketUserID(int32(FailAuth)))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	result := Login(ctx, srv.loginDeps(), req, nowFunc())
	if result.Session == nil {
		c.Response().Header().Set(headerChoToken, "no")
		if srv.Metrics != nil {
			srv.Metrics.LoginFailures.WithLabelValues(result.FailureToken).Inc()
		}
		return c.Blob(http.StatusOK, "application/octet-stream", PacketUserID(int32(result.Failure)))
	}

	if srv.Metrics != nil {
		srv.Metrics.LoginsTotal.Inc()
	}
	c.Response().Header().Set(headerChoToken, result.Session.Token)
	return c.Blob(http.StatusOK, "application/octet-stream", result.Bootstrap)
}

// dispatchPackets decodes every frame in body and runs it through sess's
// packet table (restricted accounts get the narrower table, §3/§7).
// Handler errors are logged and dispatch continues with the next frame.
func dispatchPackets(srv *Server, sess *Session, body []byte) {
	table := allPacketTable()
	if sess.Restricted() {
		table = restrictedPacketTable()
	}

	_ = protocol.ReadAll(body, func(id uint16) bool {
		_, ok := table[id]
		return ok
	}, func(pkt protocol.Packet) error {
		if srv.Metrics != nil {
			srv.Metrics.PacketsHandled.WithLabelValues(packetIDLabel(pkt.ID)).Inc()
		}
		handler := table[pkt.ID]
		if err := handler(srv, sess, pkt); err != nil && srv.Log != nil {
			srv.Log.Warnw("packet handler failed", "packet_id", pkt.ID, "user_id", sess.ID(), "error", err)
		}
		return nil
	})
}

func packetIDLabel(id uint16) string {
	return strconv.Itoa(int(id))
}
