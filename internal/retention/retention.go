// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package retention periodically purges scan and conversion history past a
// configured age, keeping the database bounded without requiring an
// external job scheduler.
package retention

import (
	"context"
	"time"

	"github.com/soerfi/qr-wizard/internal/logging"
	"github.com/soerfi/qr-wizard/internal/store"
)

// Purger deletes event data older than a retention window.
type Purger struct {
	store  *store.Store
	days   int
	logger *logging.Logger
}

// New builds a Purger that keeps retentionDays of scan/conversion history.
func New(s *store.Store, retentionDays int, logger *logging.Logger) *Purger {
	return &Purger{store: s, days: retentionDays, logger: logger}
}

// Run purges once immediately. Returns counts deleted.
func (p *Purger) Run() (scans, conversions int64, err error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.days)
	scans, conversions, err = p.store.PurgeOlderThan(cutoff)
	if err != nil {
		p.logger.Error("retention purge failed: %v", err)
		return 0, 0, err
	}
	p.logger.Info("retention purge removed %d scans and %d conversions older than %s", scans, conversions, cutoff.Format(time.RFC3339))
	return scans, conversions, nil
}

// RunEvery runs Run on the given interval until ctx is canceled.
func (p *Purger) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Run()
		}
	}
}
