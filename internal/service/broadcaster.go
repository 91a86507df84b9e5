package service

import "tabletop/internal/model"

// Broadcaster delivers events to connections (implemented by the ws Hub;
// declared here to avoid an import cycle). Delivery is best effort.
type Broadcaster interface {
	SendTo(connIDs []string, event model.EventName, payload interface{})
}
