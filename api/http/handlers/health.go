package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/accounts/pkg/health"
)

// readyTimeout caps the whole readiness round; each checker has its own limit too.
const readyTimeout = 2 * time.Second

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct{ svc health.ReadinessUseCase }

func NewHealthHandler(svc health.ReadinessUseCase) *HealthHandler { return &HealthHandler{svc: svc} }

// Health отвечает, что процесс жив; зависимости не проверяются.
// @Summary Liveness probe
// @Tags    health
// @Produce json
// @Success 200 {object} map[string]string
// @Router  /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

// Ready проверяет базу и, если настроен, Redis. Ответ содержит статус каждой зависимости.
// @Summary Readiness probe
// @Tags    health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router  /ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	status, code := "ready", fiber.StatusOK
	checks := fiber.Map{}
	for _, r := range h.svc.Report(ctx) {
		if r.Err != nil {
			status, code = "not_ready", fiber.StatusServiceUnavailable
			checks[r.Name] = r.Err.Error()
			continue
		}
		checks[r.Name] = "ok"
	}
	return c.Status(code).JSON(fiber.Map{"status": status, "checks": checks})
}
