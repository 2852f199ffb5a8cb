package middleware

import (
	"sync"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics middleware and registers
// /metrics on app. The collectors live in the default registry, so they are
// created once and shared by every app built in the process.
func InitMetrics(app *fiber.App, serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	prom.RegisterAt(app, "/metrics")
	return prom
}
