package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"catalogd/internal/catalog"
)

type handlers struct {
	client *catalog.Client
}

func (h *handlers) listCourses(c *fiber.Ctx) error {
	q := catalog.ListQuery{
		Page:     c.QueryInt("page", catalog.DefaultPage),
		Limit:    c.QueryInt("limit", catalog.DefaultLimit),
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}
	courses, err := h.client.ListCourses(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(courses)
}

func (h *handlers) getCourse(c *fiber.Ctx) error {
	course, err := h.client.GetCourse(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(course)
}

func (h *handlers) categories(c *fiber.Ctx) error {
	cats, err := h.client.Categories(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(cats)
}

func (h *handlers) cacheStats(c *fiber.Ctx) error {
	return c.JSON(h.client.CacheStats(c.UserContext()))
}

func (h *handlers) cacheSweep(c *fiber.Ctx) error {
	n := h.client.SweepExpired(c.UserContext())
	reqLogger(c).Info().Int("removed", n).Msg("cache sweep")
	return c.JSON(fiber.Map{"removed": n})
}

func (h *handlers) cacheClearAll(c *fiber.Ctx) error {
	n := h.client.ClearAll(c.UserContext())
	reqLogger(c).Info().Int("removed", n).Msg("cache cleared")
	return c.JSON(fiber.Map{"removed": n})
}

func (h *handlers) cacheClearCourse(c *fiber.Ctx) error {
	h.client.ClearCourse(c.UserContext(), c.Params("id"))
	return c.SendStatus(http.StatusNoContent)
}

// writeError maps fetch failures onto HTTP statuses. Anything the course API
// did wrong is a 502 for our callers. The body carries a short fixed message;
// the full error, which may hold upstream URLs, only goes to the log.
func writeError(c *fiber.Ctx, err error) error {
	status, msg := http.StatusBadGateway, "upstream unavailable"
	kind, _ := catalog.KindOf(err)
	switch {
	case errors.Is(err, catalog.ErrInvalidID):
		status, msg = http.StatusBadRequest, catalog.ErrInvalidID.Error()
	case catalog.IsNotFound(err):
		status, msg = http.StatusNotFound, "course not found"
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "upstream timed out"
	case kind == catalog.KindStatus:
		msg = "upstream returned an error"
	case kind == catalog.KindDecode:
		msg = "upstream returned an unexpected response"
	}

	l := reqLogger(c)
	l.Warn().Err(err).Str("kind", string(kind)).Int("status", status).Msg("catalog request failed")

	return c.Status(status).JSON(fiber.Map{"error": msg})
}
