package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the device session.
// output example:
//
//	{"NumGoroutines":11,"HeapAllocatedMB":3,"Version":"1.0.0+20241001","ProgLang":"go1.21.5",
//	 "Session":"active","BrokerConnected":true,"LastHeartbeat":"2024-10-01T18:00:05+02:00"}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		s := app.grill.State()

		healthData := struct {
			NumGoroutines   int
			NumCPU          int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Time            string
			DeviceID        string
			Session         string
			BrokerConnected bool
			LastHeartbeat   time.Time
		}{
			NumGoroutines:   runtime.NumGoroutine(),
			NumCPU:          runtime.NumCPU(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			ProgLang:        runtime.Version(),
			Version:         VERSION,
			HostName:        host,
			Time:            time.Now().Format(time.RFC3339),
			DeviceID:        app.config.Device.ID,
			Session:         app.grill.Status().String(),
			BrokerConnected: app.mqtt.IsConnected(),
			LastHeartbeat:   s.LastHeartbeat,
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
