// SPDX-License-Identifier: AGPL-3.0-only
package catalog

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/renzz/mcp-chat/internal/logging"
)

// Refresher re-lists catalog tools on a cron schedule so long-lived
// sessions observe tool changes on connected servers.
type Refresher struct {
	cron    *cron.Cron
	manager *Manager
	logger  *logging.Logger
}

// NewRefresher creates a refresher for the given manager.
func NewRefresher(manager *Manager, logger *logging.Logger) *Refresher {
	return &Refresher{
		cron:    cron.New(),
		manager: manager,
		logger:  logger,
	}
}

// Start schedules periodic refreshes. An empty schedule disables
// refreshing without error.
func (r *Refresher) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		r.logger.Debugf("Catalog refresh disabled")
		return nil
	}
	_, err := r.cron.AddFunc(schedule, func() {
		r.logger.Debugf("Refreshing tool catalog")
		r.manager.Refresh(ctx)
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Infof("Catalog refresh scheduled: %s", schedule)
	return nil
}

// Stop halts the refresh schedule and waits for a running refresh to
// finish.
func (r *Refresher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
}
