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

// Package normalize converts heterogeneous intrusion-event shapes into the
// canonical LogRecord. REST log rows and push events wrap the same
// device-reported payloads with inconsistent key spellings; each canonical
// field resolves through a fixed, ordered candidate-key list so output
// stays stable across producers.
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/tinyids/console/pkg/models"
)

const (
	defaultType        = "Unknown"
	defaultDescription = "No additional context provided."
)

// Candidate keys per canonical field, in resolution order. The top-level
// object is scanned before the nested payload object.
var (
	idKeys          = []string{"id", "log_id", "logId"}
	deviceNameKeys  = []string{"device_name", "deviceName", "device"}
	deviceIDKeys    = []string{"device_id", "deviceId"}
	tokenKeys       = []string{"token"}
	severityKeys    = []string{"severity", "level", "priority"}
	typeKeys        = []string{"type", "attack_type", "event_type"}
	alertKeys       = []string{"alert_msg", "alertMsg", "alert_message", "alert"}
	descriptionKeys = []string{"description", "detail", "message", "summary"}
	timestampKeys   = []string{"timestamp", "time", "ts", "created_at", "reported_at"}

	sourceIPKeys      = ipKeys("source")
	destinationIPKeys = ipKeys("destination")
)

func ipKeys(prefix string) []string {
	return []string{
		prefix + "_ip",
		prefix + "Ip",
		prefix + "_ip_address",
		prefix + " ip",
		prefix + "-ip",
		prefix + " ip address",
		prefix + "-ip-address",
	}
}

// Normalize converts one raw event into a LogRecord, or returns nil when the
// input carries no usable id anywhere and cannot be correlated downstream.
func Normalize(raw map[string]interface{}) *models.LogRecord {
	if len(raw) == 0 {
		return nil
	}

	id := asString(lookup(raw, idKeys))
	if id == "" {
		return nil
	}

	record := &models.LogRecord{
		ID:            id,
		DeviceName:    asString(lookup(raw, deviceNameKeys)),
		Token:         asString(lookup(raw, tokenKeys)),
		Severity:      Severity(asString(lookup(raw, severityKeys))),
		AlertMessage:  asString(lookup(raw, alertKeys)),
		SourceIP:      asString(lookup(raw, sourceIPKeys)),
		DestinationIP: asString(lookup(raw, destinationIPKeys)),
		Raw:           raw,
	}

	if deviceID, ok := asInt(lookup(raw, deviceIDKeys)); ok {
		record.DeviceID = deviceID
	}

	if record.Type = asString(lookup(raw, typeKeys)); record.Type == "" {
		record.Type = defaultType
	}

	if record.Description = asString(lookup(raw, descriptionKeys)); record.Description == "" {
		record.Description = defaultDescription
	}

	record.Timestamp = resolveTimestamp(raw, time.Now().UTC())

	return record
}

// lookup returns the first non-empty value for any candidate key, scanning
// the whole list at the top level before descending into the nested payload
// object. REST serializations win over device-reported duplicates that way.
func lookup(raw map[string]interface{}, keys []string) interface{} {
	for _, key := range keys {
		if v, ok := usable(raw[key]); ok {
			return v
		}
	}

	payload, ok := raw["payload"].(map[string]interface{})
	if !ok {
		return nil
	}

	for _, key := range keys {
		if v, ok := usable(payload[key]); ok {
			return v
		}
	}

	return nil
}

// usable filters out absent and empty-ish values so a blank spelling of a
// key does not shadow a populated alternate spelling.
func usable(v interface{}) (interface{}, bool) {
	switch value := v.(type) {
	case nil:
		return nil, false
	case string:
		trimmed := strings.TrimSpace(value)
		return trimmed, trimmed != ""
	case float64:
		return value, value != 0
	case int:
		return value, value != 0
	case int64:
		return value, value != 0
	case bool:
		return value, value
	default:
		return value, true
	}
}

func asString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}

		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	default:
		return ""
	}
}

func asInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case int64:
		return int(value), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
