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

// Device mirrors the backend device serialization, including the nested
// network profile blocks.
type Device struct {
	ID         int    `json:"id"`
	Name       string `json:"device_name"`
	ESPID      string `json:"esp_id"`
	Status     string `json:"status"`
	IsActive   bool   `json:"is_active"`
	IPAddress  string `json:"ip_address,omitempty"`
	MACAddress string `json:"mac_address,omitempty"`
	// LastSeen stays a string: the backend emits naive ISO timestamps for
	// devices that predate timezone handling.
	LastSeen string     `json:"last_seen,omitempty"`
	Active   bool       `json:"active"`
	Wifi     DeviceWifi `json:"wifi"`
	MQTT     DeviceMQTT `json:"mqtt"`
	Token    string     `json:"token,omitempty"`
}

// DeviceWifi is the Wi-Fi slice of a device's network profile.
type DeviceWifi struct {
	SSID       string `json:"ssid,omitempty"`
	LastResult string `json:"last_result,omitempty"`
}

// DeviceMQTT is the broker slice of a device's network profile. The broker
// password is never returned, only whether one is set.
type DeviceMQTT struct {
	BrokerHost  string `json:"broker_host,omitempty"`
	BrokerPort  int    `json:"broker_port,omitempty"`
	Username    string `json:"username,omitempty"`
	PasswordSet bool   `json:"password_set"`
	ClientID    string `json:"client_id,omitempty"`
	UseTLS      bool   `json:"use_tls"`
	LastResult  string `json:"last_result,omitempty"`
}

// BlacklistEntry is one blocked source address.
type BlacklistEntry struct {
	ID         int    `json:"id"`
	DeviceName string `json:"device_name,omitempty"`
	IPAddress  string `json:"ip_address"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Rule is a global detection rule.
type Rule struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	RateLimitPPM   int    `json:"rate_limit_ppm,omitempty"`
	MACAddressRule string `json:"mac_address_rule,omitempty"`
	Topic          string `json:"topic,omitempty"`
	SSID           string `json:"ssid,omitempty"`
	PacketSizeMax  int    `json:"packet_size_max,omitempty"`
	RSSIThreshold  int    `json:"rssi_threshold,omitempty"`
}

// DeviceRule is the per-device detection profile pushed to a sensor.
type DeviceRule struct {
	RateLimitPPM  int      `json:"rate_limit_ppm,omitempty"`
	MACAddress    string   `json:"mac_address,omitempty"`
	MQTTTopics    []string `json:"mqtt_topics"`
	SSID          string   `json:"ssid,omitempty"`
	MaxPacketSize int      `json:"max_packet_size,omitempty"`
	RSSIThreshold int      `json:"rssi_threshold,omitempty"`
	Enabled       bool     `json:"enabled"`
}
