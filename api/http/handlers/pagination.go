package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// maxPageSize caps ?limit; larger values are ignored, not clamped.
const maxPageSize = 200

// parseLimitOffset reads ?limit and ?offset. Invalid values fall back to
// defLimit and 0; a defLimit of 0 means unpaged.
func parseLimitOffset(c *fiber.Ctx, defLimit int) (limit, offset int) {
	limit = queryInt(c, "limit", defLimit, func(n int) bool { return n > 0 && n <= maxPageSize })
	offset = queryInt(c, "offset", 0, func(n int) bool { return n >= 0 })
	return limit, offset
}

// queryInt возвращает def, если параметр пуст, не число или не прошёл проверку ok.
func queryInt(c *fiber.Ctx, key string, def int, ok func(int) bool) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || !ok(n) {
		return def
	}
	return n
}
