package app

// initDefaultRoutes initializes the applications routes.
// Each route can be disabled in the webservices section of the config file.
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["state"] {
		api.Get("/state", app.HandleState())
	}
	if app.config.Webserver.Webservices["power"] {
		api.Post("/power", app.HandlePower())
	}
	if app.config.Webserver.Webservices["target"] {
		api.Post("/target", app.HandleTarget())
	}
}
