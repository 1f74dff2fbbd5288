package logview

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyids/console/pkg/models"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func record(id string, ts time.Time) *models.LogRecord {
	return &models.LogRecord{
		ID:          id,
		DeviceName:  "ESP32",
		Severity:    "High",
		Type:        "SYN Flood",
		Description: "Half-open connection burst",
		SourceIP:    "10.0.0.9",
		Timestamp:   ts,
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	incoming := []*models.LogRecord{
		record("1", baseTime),
		record("2", baseTime.Add(2*time.Minute)),
		record("3", baseTime.Add(time.Minute)),
	}

	merged := Merge(incoming, nil, 0)
	require.Len(t, merged, 3)

	assert.Equal(t, "2", merged[0].ID)
	assert.Equal(t, "3", merged[1].ID)
	assert.Equal(t, "1", merged[2].ID)
}

func TestMergeIdempotent(t *testing.T) {
	incoming := []*models.LogRecord{
		record("1", baseTime),
		record("2", baseTime.Add(time.Minute)),
	}
	existing := []*models.LogRecord{
		record("3", baseTime.Add(2*time.Minute)),
	}

	once := Merge(incoming, existing, 0)
	twice := Merge(once, nil, 0)

	assert.Equal(t, once, twice)

	// Re-merging the same inputs on top of the result grows nothing.
	again := Merge(incoming, once, 0)
	assert.Equal(t, once, again)
}

func TestMergeDedupsByIdentity(t *testing.T) {
	fresh := record("1", baseTime.Add(time.Minute))
	fresh.Description = "Updated description"

	stale := record("1", baseTime)

	merged := Merge([]*models.LogRecord{fresh}, []*models.LogRecord{stale}, 0)
	require.Len(t, merged, 1)

	// Incoming is processed first, so the fresh copy wins the collision.
	assert.Equal(t, "Updated description", merged[0].Description)
}

func TestMergeDedupsBySignature(t *testing.T) {
	first := record("", baseTime)
	second := record("", baseTime)

	merged := Merge([]*models.LogRecord{first}, []*models.LogRecord{second}, 0)
	assert.Len(t, merged, 1)

	// Same content one second later is a distinct event.
	third := record("", baseTime.Add(time.Second))
	merged = Merge([]*models.LogRecord{third}, merged, 0)
	assert.Len(t, merged, 2)
}

func TestMergeSignatureCollisionAcrossIDs(t *testing.T) {
	// An id-less push duplicating an identified record's content is dropped.
	identified := record("9", baseTime)
	anonymous := record("", baseTime)

	merged := Merge([]*models.LogRecord{identified}, []*models.LogRecord{anonymous}, 0)
	require.Len(t, merged, 1)
	assert.Equal(t, "9", merged[0].ID)
}

func TestMergeEnforcesBound(t *testing.T) {
	incoming := make([]*models.LogRecord, 0, 500)
	for i := 0; i < 500; i++ {
		incoming = append(incoming, record(fmt.Sprintf("%d", i), baseTime.Add(time.Duration(i)*time.Second)))
	}

	merged := Merge(incoming, nil, 0)
	require.Len(t, merged, DefaultLimit)

	// The 200 newest survive, newest first.
	assert.Equal(t, "499", merged[0].ID)
	assert.Equal(t, "300", merged[len(merged)-1].ID)
}

func TestMergeCustomLimit(t *testing.T) {
	incoming := []*models.LogRecord{
		record("1", baseTime),
		record("2", baseTime.Add(time.Minute)),
		record("3", baseTime.Add(2*time.Minute)),
	}

	merged := Merge(incoming, nil, 2)
	require.Len(t, merged, 2)
	assert.Equal(t, "3", merged[0].ID)
	assert.Equal(t, "2", merged[1].ID)
}

func TestMergeZeroTimestampsSinkToTail(t *testing.T) {
	undated := record("undated", time.Time{})
	dated := record("dated", baseTime)

	merged := Merge([]*models.LogRecord{undated, dated}, nil, 0)
	require.Len(t, merged, 2)
	assert.Equal(t, "dated", merged[0].ID)
	assert.Equal(t, "undated", merged[1].ID)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	incoming := []*models.LogRecord{
		record("2", baseTime.Add(time.Minute)),
		record("1", baseTime),
	}
	existing := []*models.LogRecord{
		record("3", baseTime.Add(2*time.Minute)),
	}

	Merge(incoming, existing, 0)

	assert.Equal(t, "2", incoming[0].ID)
	assert.Equal(t, "1", incoming[1].ID)
	assert.Equal(t, "3", existing[0].ID)
}

func TestSignatureComponents(t *testing.T) {
	rec := record("", baseTime)
	rec.AlertMessage = "Deauth frames"

	sig := Signature(rec)
	assert.Equal(t, fmt.Sprintf("ESP32|SYN Flood|Deauth frames|10.0.0.9|%d", baseTime.Unix()), sig)

	// Zero timestamps truncate to zero seconds rather than a negative epoch.
	rec.Timestamp = time.Time{}
	assert.Equal(t, "ESP32|SYN Flood|Deauth frames|10.0.0.9|0", Signature(rec))
}
