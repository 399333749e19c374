// Package mqtt provides the MQTT transport for Wavelink's event surface.
//
// The core publishes canonical player state, group membership, refresh
// errors, and dispatch results over MQTT, and receives group commands on
// wavelink/command/group/+. Topic builders in Topics keep the hierarchy
// consistent:
//
//	wavelink/player/{id}/state      retained player state
//	wavelink/player/{id}/error      refresh errors (transient)
//	wavelink/group/{master}/members retained group membership
//	wavelink/command/group/{master} inbound group commands
//	wavelink/result/{dispatch_id}   dispatch outcomes (transient)
//	wavelink/system/status          online/offline + LWT
//
// The client wraps paho.mqtt.golang with automatic reconnection,
// subscription restoration, Last Will and Testament for crash
// detection, and panic recovery around message handlers.
package mqtt
