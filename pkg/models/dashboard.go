package models

// DashboardTotals is the headline counter block on the dashboard.
type DashboardTotals struct {
	DetectedAttacks   int    `json:"detectedAttacks"`
	PacketsAnalyzed   int    `json:"packetsAnalyzed"`
	DetectionAccuracy int    `json:"detectionAccuracy"`
	DeviceActivity    int    `json:"deviceActivity"`
	AlertsTriggered   int    `json:"alertsTriggered"`
	RuleActivation    int    `json:"ruleActivation"`
	PacketsCaptured   int    `json:"packetsCaptured"`
	ThreatLevel       int    `json:"threatLevel"`
	LastAlertAt       string `json:"lastAlertAt,omitempty"`
}

// TrendPoint is one labelled bucket in a dashboard trend series.
type TrendPoint struct {
	Label     string `json:"label"`
	FullLabel string `json:"fullLabel,omitempty"`
	Value     int    `json:"value"`
}

// DeviceSummary is the compact device row embedded in the dashboard payload.
type DeviceSummary struct {
	ID          int    `json:"id"`
	Name        string `json:"device_name"`
	Status      string `json:"status"`
	MACAddress  string `json:"mac_address,omitempty"`
	Active      bool   `json:"active"`
	LastSeen    string `json:"last_seen,omitempty"`
	AttackCount int    `json:"attackCount"`
	Token       string `json:"token,omitempty"`
}

// DashboardOverview is the GET /dashboard response.
type DashboardOverview struct {
	Totals           DashboardTotals         `json:"totals"`
	Widgets          map[string]int          `json:"widgets"`
	Trends           map[string][]TrendPoint `json:"trends"`
	AvailableDevices []DeviceSummary         `json:"available_devices"`
	SelectedDevice   *DeviceSummary          `json:"selected_device,omitempty"`
	LastUpdated      string                  `json:"lastUpdated"`
	DevicesOnline    int                     `json:"devicesOnline"`
	DeviceCount      int                     `json:"deviceCount"`
}
