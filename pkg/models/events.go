/*
 * Copyright 2025 the TinyIDS Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"time"
)

// Event names delivered over the push channel.
const (
	EventLogNew           = "log:new"
	EventDeviceRegistered = "device:registered"
	EventDeviceUpdated    = "device:updated"
)

// PushEvent is the envelope for one frame off the push channel. Data stays
// raw until the consumer knows what the event carries.
type PushEvent struct {
	Event      string          `json:"event"`
	Data       json.RawMessage `json:"data"`
	ReceivedAt time.Time       `json:"-"`
}

// DeviceChange is the payload of device:registered and device:updated events.
type DeviceChange struct {
	DeviceID int    `json:"device_id"`
	ESPID    string `json:"esp_id,omitempty"`
}
