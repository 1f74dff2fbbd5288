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

package probe

import (
	"time"

	"github.com/tinyids/console/pkg/models"
)

const (
	defaultThrottle       = 10 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultMaxAttempts    = 5
	defaultStalenessSlack = time.Second
)

// Config holds the prober tunables. Observed deployments vary on all of
// them, so none is hard-coded.
type Config struct {
	// Throttle suppresses a repeat request for the same token inside this
	// window.
	Throttle models.Duration `json:"throttle"`

	// PollInterval paces the REST latest-settings fallback.
	PollInterval models.Duration `json:"poll_interval"`

	// MaxAttempts bounds fallback polls before a request fails.
	MaxAttempts int `json:"max_attempts"`

	// StalenessSlack widens the freshness check so a reply stamped just
	// before the request still counts as an answer.
	StalenessSlack models.Duration `json:"staleness_slack"`
}

// Validate implements config.Validator, filling defaults for unset fields.
func (c *Config) Validate() error {
	if c.Throttle.Std() <= 0 {
		c.Throttle = models.Duration(defaultThrottle)
	}

	if c.PollInterval.Std() <= 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}

	if c.StalenessSlack.Std() <= 0 {
		c.StalenessSlack = models.Duration(defaultStalenessSlack)
	}

	return nil
}
