package app

import (
	"encoding/json"

	"tgrill/pkg/grill"
	"tgrill/pkg/mqtt"

	"github.com/womat/debug"
)

// stateMessage is the published state of the device, it's also returned by the state web service.
type stateMessage struct {
	DeviceID     string `json:"device_id"`
	Name         string `json:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Session      string `json:"session"`
	grill.State
}

func (app *App) stateMessage(s grill.State) stateMessage {
	return stateMessage{
		DeviceID:     app.config.Device.ID,
		Name:         app.config.Device.Name,
		Manufacturer: app.config.Device.Manufacturer,
		Model:        app.config.Device.Model,
		Session:      app.grill.Status().String(),
		State:        s,
	}
}

// publishState sends the state snapshot as retained message to the state topic.
// It's the observer of the device session and called once per change.
func (app *App) publishState(s grill.State) {
	if app.stateTopic == "" {
		return
	}

	debug.TraceLog.Printf("prepare mqtt message %v %v", app.stateTopic, s)

	b, err := json.MarshalIndent(app.stateMessage(s), "", "  ")
	if err != nil {
		debug.ErrorLog.Printf("publishState marshal: %v", err)
		return
	}

	if err = app.mqtt.Send(mqtt.Message{
		Qos:      0,
		Retained: true,
		Topic:    app.stateTopic,
		Payload:  b,
	}); err != nil {
		debug.ErrorLog.Printf("publishing state: %v", err)
	}
}
