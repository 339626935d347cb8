package app

import (
	"errors"
	"net/http"

	"tgrill/pkg/grill"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

type powerRequest struct {
	On *bool `json:"on"`
}

type targetRequest struct {
	Value *float64 `json:"value"`
}

// runWebServer starts the applications web server and listens for web requests.
// It's designed to run in a separate go function to not block the main go function,
// e.g. go runWebServer(). See app.Run().
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleState returns the current state of the smoker.
func (app *App) HandleState() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request state")

		return ctx.JSON(app.stateMessage(app.grill.State()))
	}
}

// HandlePower switches the smoker on or off, e.g. {"on": true}.
func (app *App) HandlePower() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request power")

		var req powerRequest
		if err := ctx.BodyParser(&req); err != nil || req.On == nil {
			return badRequest(ctx, `expected {"on": true|false}`)
		}

		if err := app.grill.SetPower(*req.On); err != nil {
			return commandError(ctx, err)
		}

		return ctx.JSON(app.stateMessage(app.grill.State()))
	}
}

// HandleTarget sets the target temperature in the display unit, e.g. {"value": 225}.
func (app *App) HandleTarget() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request target")

		var req targetRequest
		if err := ctx.BodyParser(&req); err != nil || req.Value == nil {
			return badRequest(ctx, `expected {"value": number}`)
		}

		if err := app.grill.SetTarget(*req.Value); err != nil {
			return commandError(ctx, err)
		}

		return ctx.JSON(app.stateMessage(app.grill.State()))
	}
}

func badRequest(ctx *fiber.Ctx, msg string) error {
	return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// commandError maps the errors of the device session to http status codes.
func commandError(ctx *fiber.Ctx, err error) error {
	debug.ErrorLog.Printf("web request: %v", err)

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, grill.ErrNotActive):
		status = http.StatusServiceUnavailable
	case errors.Is(err, grill.ErrInvalidTarget):
		status = http.StatusBadRequest
	}

	return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
}
