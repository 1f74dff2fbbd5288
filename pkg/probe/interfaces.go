package probe

import (
	"context"
	"time"

	"github.com/tinyids/console/pkg/models"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// Publisher sends the fire-and-forget show-settings command toward a device.
// Implementations ride the backend publish endpoint or the MQTT control
// topic; either way delivery is unacknowledged.
type Publisher interface {
	RequestSettings(ctx context.Context, deviceID int, token string) error
}

// SnapshotFetcher reads the backend's cached latest-settings snapshot for a
// device. It backs the poll fallback when no push reply shows up.
type SnapshotFetcher interface {
	LatestSettings(ctx context.Context, deviceID int) (models.SettingsSnapshot, error)
}
