package plugin

import (
	"context"
	"time"

	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/event"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/registry"
	"github.com/randalmurphal/quarterdeck/pkg/quarterdeck/state"
)

// Builtin registers the stock action and signal every deployment gets:
// ui.open_url asks connected clients to open a URL, and camera.motion
// turns a motion webhook into a TTL-bounded indicator state.
func Builtin(h *Host) error {
	openURL := func(ctx context.Context, payload map[string]any) error {
		url := payload["url"].(string)
		h.Events.Publish(event.New("ui.open_url",
			event.Source{Kind: "action", ID: "ui.open_url"},
			map[string]any{"url": url},
		))
		return nil
	}

	cameraMotion := func(ctx context.Context, payload map[string]any) error {
		key := payload["key"].(string)
		active, _ := payload["active"].(bool)

		opts := []state.SetOption{
			state.WithSource(event.Source{Kind: "signal", ID: "camera.motion"}),
		}
		switch ttl := payload["ttl_seconds"].(type) {
		case float64:
			opts = append(opts, state.WithTTL(time.Duration(ttl*float64(time.Second))))
		case int:
			opts = append(opts, state.WithTTL(time.Duration(ttl)*time.Second))
		}
		h.State.Set(key, map[string]any{"active": active}, opts...)
		return nil
	}

	if err := h.Actions.Register("ui.open_url", openURL,
		registry.WithDescription("Open a URL in the client's default browser"),
		registry.WithSchema(registry.Schema{
			"url": {Type: registry.TypeString, Required: true},
		}),
	); err != nil {
		return err
	}

	return h.Signals.Register("camera.motion", cameraMotion,
		registry.WithDescription("Handle camera motion detection webhook"),
		registry.WithSchema(registry.Schema{
			"key":         {Type: registry.TypeString, Default: "camera.front_door.motion"},
			"active":      {Type: registry.TypeBoolean, Default: true},
			"ttl_seconds": {Type: registry.TypeNumber},
		}),
	)
}
