package app

import (
	"context"
	"net/url"
	"strings"

	"tgrill/pkg/app/config"
	"tgrill/pkg/capture"
	"tgrill/pkg/grill"
	"tgrill/pkg/mqtt"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// recorder writes the captured frames, nil if capturing is disabled
	recorder *capture.Recorder

	// grill is the device session
	grill *grill.Synchronizer

	// stateTopic is the expanded Config.MQTT.StateTopic
	stateTopic string

	// cancel stops the device session
	cancel context.CancelFunc
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	app := &App{
		config:     config,
		urlParsed:  u,
		web:        fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:       mqtt.New(),
		stateTopic: strings.ReplaceAll(config.MQTT.StateTopic, "{device_id}", config.Device.ID),
	}

	var transport grill.Transport = app.mqtt
	if f := config.Capture.File; f != "" {
		if app.recorder, err = capture.Create(f); err != nil {
			debug.ErrorLog.Printf("can't open capture file %v: %v", f, err)
			return app, err
		}
		debug.InfoLog.Printf("capturing frames to %v", f)
		transport = capture.NewTransport(app.mqtt, app.recorder)
	}

	app.grill = grill.New(grill.Config{
		DeviceID: config.Device.ID,
		Unit:     config.Device.Unit,
		Interval: config.Poll.Interval,
		Spacing:  config.Poll.Spacing,
		Layout:   config.Protocol.Layout,
	}, transport)
	app.grill.OnChange(app.publishState)

	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()

	var ctx context.Context
	ctx, app.cancel = context.WithCancel(context.Background())
	if err := app.grill.Start(ctx); err != nil {
		debug.ErrorLog.Printf("can't start device session: %v", err)
		return err
	}

	return nil
}

// init initializes the application.
func (app *App) init() error {
	if err := app.mqtt.Connect(mqtt.Options{
		Broker:   app.config.MQTT.Connection,
		ClientID: app.config.MQTT.ClientID,
		Username: app.config.MQTT.Username,
		Password: app.config.MQTT.Password,
		Qos:      byte(app.config.MQTT.Qos),
	}); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should be always called last because it may access things like app.grill
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// Close stops the device session and releases all resources.
func (app *App) Close() error {
	if app.grill != nil {
		app.grill.Stop()
	}
	if app.cancel != nil {
		app.cancel()
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	if app.recorder != nil {
		_ = app.recorder.Close()
	}

	return nil
}
