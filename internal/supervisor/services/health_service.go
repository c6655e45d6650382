// Lumigate - Authentication Gateway and Session Security Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lumigate

package services

import (
	"context"

	"github.com/tomtom215/lumigate/internal/identity"
)

// HealthMonitorService runs the identity backend health monitor's probe
// loop under supervision.
type HealthMonitorService struct {
	monitor *identity.HealthMonitor
}

// NewHealthMonitorService wraps monitor as a supervised service.
func NewHealthMonitorService(monitor *identity.HealthMonitor) *HealthMonitorService {
	return &HealthMonitorService{monitor: monitor}
}

// Serve runs the probe loop until ctx is canceled.
func (s *HealthMonitorService) Serve(ctx context.Context) error {
	return s.monitor.Run(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *HealthMonitorService) String() string {
	return "backend-health-monitor"
}
