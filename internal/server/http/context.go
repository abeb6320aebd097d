package httpserver

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"catalogd/internal/catalog"
)

const reqIDLocal = "req_id"

var (
	reqStartUnix = time.Now().UnixNano()
	reqCounter   uint64
)

// makeReqID returns external X-Request-Id if provided, otherwise generates UUIDv4;
// if uuid generation fails, fallback to timestamp+counter.
func makeReqID(c *fiber.Ctx) string {
	if hdr := c.Get("X-Request-Id"); hdr != "" {
		return hdr
	}
	if v, err := uuid.NewRandom(); err == nil {
		return v.String()
	}
	n := atomic.AddUint64(&reqCounter, 1)
	return fmt.Sprintf("%x-%x", reqStartUnix, n)
}

// requestContext tags every request with an id, echoes it back, forwards it
// to the course API through the user context and writes one access line.
func requestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		id := makeReqID(c)
		c.Locals(reqIDLocal, id)
		c.Set("X-Request-Id", id)
		c.SetUserContext(catalog.WithRequestID(c.UserContext(), id))

		err := c.Next()

		l := reqLogger(c)
		l.Debug().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}

// reqLogger returns the global logger tagged with the request id.
func reqLogger(c *fiber.Ctx) *zerolog.Logger {
	id, _ := c.Locals(reqIDLocal).(string)
	l := log.With().Str("req_id", id).Logger()
	return &l
}
