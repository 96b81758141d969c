package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/WebAFilippov/af-win-audio/internal/api"
	"github.com/WebAFilippov/af-win-audio/internal/history"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/influxdb"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/logging"
	"github.com/WebAFilippov/af-win-audio/internal/infrastructure/mqtt"
	"github.com/WebAFilippov/af-win-audio/internal/monitor"
)

// historyWriteTimeout bounds each change-history insert. Listeners run on the
// monitor's dispatch goroutine, so a stuck database write must not stall the
// event pipeline indefinitely.
const historyWriteTimeout = 5 * time.Second

// wireEvents connects monitor event subscriptions to their fan-out targets:
// SQLite change history, MQTT topics, InfluxDB telemetry, and the WebSocket
// hub. Any target may be nil; the remaining ones still receive events.
func wireEvents(
	mon *monitor.Monitor,
	historyRepo *history.SQLiteRepository,
	mqttClient *mqtt.Client,
	influxClient *influxdb.Client,
	hub *api.Hub,
	log *logging.Logger,
) {
	topics := mqtt.Topics{}

	mon.OnChange(func(ev monitor.ChangeEvent) {
		if historyRepo != nil {
			ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
			if err := historyRepo.Record(ctx, ev.Snapshot, ev.Changed, history.SourceSnapshot); err != nil {
				log.Error("recording change history", "device_id", ev.Snapshot.ID, "error", err)
			}
			cancel()
		}

		if mqttClient != nil {
			publishJSON(mqttClient, topics.DeviceState(ev.Snapshot.ID), ev.Snapshot, true, log)
			publishJSON(mqttClient, topics.DeviceChanged(ev.Snapshot.ID), ev, false, log)
		}

		if influxClient != nil {
			influxClient.WriteVolume(ev.Snapshot.ID, ev.Snapshot.Volume, ev.Snapshot.Muted)
		}

		hub.Broadcast(api.ChannelDeviceChanged, ev)
	})

	mon.OnDevices(func(ev monitor.DevicesEvent) {
		if mqttClient != nil {
			publishJSON(mqttClient, topics.Devices(), ev, true, log)
		}
		hub.Broadcast(api.ChannelDevices, ev)
	})

	mon.OnError(func(ev monitor.ErrorEvent) {
		log.Warn("audio process error", "error", ev.Err)
		payload := map[string]string{
			"error":     ev.Err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if mqttClient != nil {
			publishJSON(mqttClient, topics.SystemError(), payload, false, log)
		}
		hub.Broadcast(api.ChannelError, payload)
	})

	mon.OnExit(func(ev monitor.ExitEvent) {
		log.Info("audio process exited", "code", ev.Code, "signaled", ev.Signaled)
		payload := map[string]any{
			"event":     "exit",
			"code":      ev.Code,
			"signaled":  ev.Signaled,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if mqttClient != nil {
			publishJSON(mqttClient, topics.SystemProcess(), payload, false, log)
		}
		hub.Broadcast(api.ChannelProcess, payload)
	})

	mon.OnForceExit(func(ev monitor.ForceExitEvent) {
		log.Warn("audio process force-killed", "reason", ev.Reason)
		payload := map[string]any{
			"event":     "force_exit",
			"reason":    ev.Reason,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if mqttClient != nil {
			publishJSON(mqttClient, topics.SystemProcess(), payload, false, log)
		}
		hub.Broadcast(api.ChannelProcess, payload)
	})
}

// publishJSON marshals v and publishes it, retained for state topics and at
// QoS 1 otherwise. Marshal and publish failures are logged, never propagated;
// a broken broker must not stop the event pipeline.
func publishJSON(client *mqtt.Client, topic string, v any, retained bool, log *logging.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("marshalling MQTT payload", "topic", topic, "error", err)
		return
	}

	if retained {
		err = client.PublishRetained(topic, data)
	} else {
		err = client.Publish(topic, data, 1, false)
	}
	if err != nil {
		log.Error("publishing MQTT message", "topic", topic, "error", err)
	}
}

// commandMessage is the JSON payload accepted on the MQTT command topic.
// Action names mirror the executable's stdin verbs.
type commandMessage struct {
	Action   string `json:"action"`
	DeviceID string `json:"device_id,omitempty"`
	Level    int    `json:"level,omitempty"`
	Step     int    `json:"step,omitempty"`
	DelayMs  int    `json:"delay_ms,omitempty"`
}

// subscribeCommands listens on the command topic and dispatches incoming
// actions to the monitor. Invalid payloads and rejected commands are logged
// and dropped; the subscription stays alive.
func subscribeCommands(mqttClient *mqtt.Client, mon *monitor.Monitor, log *logging.Logger) error {
	return mqttClient.Subscribe(mqtt.Topics{}.Command(), 1, func(_ string, payload []byte) error {
		var msg commandMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn("invalid command payload", "error", err)
			return nil
		}

		if err := dispatchCommand(mon, msg); err != nil {
			log.Warn("command rejected", "action", msg.Action, "error", err)
		}
		return nil
	})
}

// dispatchCommand maps a command message onto the matching monitor method.
func dispatchCommand(mon *monitor.Monitor, msg commandMessage) error {
	switch msg.Action {
	case "upVolume":
		if msg.Step > 0 {
			return mon.UpVolumeBy(msg.Step)
		}
		return mon.UpVolume()
	case "downVolume":
		if msg.Step > 0 {
			return mon.DownVolumeBy(msg.Step)
		}
		return mon.DownVolume()
	case "setvolume":
		return mon.SetVolume(msg.Level)
	case "setvolumeid":
		return mon.SetDeviceVolume(msg.DeviceID, msg.Level)
	case "setmute":
		return mon.Mute()
	case "setunmute":
		return mon.Unmute()
	case "togglemute":
		return mon.ToggleMute()
	case "setmuteid":
		return mon.MuteDevice(msg.DeviceID)
	case "setunmuteid":
		return mon.UnmuteDevice(msg.DeviceID)
	case "togglemuteid":
		return mon.ToggleMuteDevice(msg.DeviceID)
	case "setDelay":
		return mon.SetPollDelay(msg.DelayMs)
	case "setStepVolume":
		return mon.SetVolumeStep(msg.Step)
	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}
