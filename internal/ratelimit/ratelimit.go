// Package ratelimit decides whether a publish attempt may proceed under the
// account's posting quota.
package ratelimit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/threadkit/threadspipe/internal/threads"
)

// QuotaFetcher is the slice of the API client the limiter needs.
type QuotaFetcher interface {
	// PublishingLimit returns the current quota, or nil when the server
	// reports no quota data.
	PublishingLimit(ctx context.Context, forReplies bool) (*threads.Quota, error)
}

// Action is the limiter's verdict.
type Action int

const (
	// ActionProceed: quota has room (or could not be determined).
	ActionProceed Action = iota
	// ActionWait: quota is exhausted; sleep for Decision.Wait, then publish
	// without re-checking.
	ActionWait
	// ActionReject: quota is exhausted and waiting is not enabled.
	ActionReject
)

// Decision is the verdict for one publish attempt, with the quota snapshot
// that backed it (nil when the check failed open).
type Decision struct {
	Action Action
	Wait   time.Duration
	Quota  *threads.Quota
}

// Limiter checks publishing quota before each post or reply.
type Limiter struct {
	fetcher     QuotaFetcher
	waitOnLimit bool
}

// New creates a Limiter. With waitOnLimit set, an exhausted quota yields
// ActionWait for the length of the quota window instead of ActionReject.
func New(fetcher QuotaFetcher, waitOnLimit bool) *Limiter {
	return &Limiter{fetcher: fetcher, waitOnLimit: waitOnLimit}
}

// Check fetches the quota scoped to posts or replies and renders a verdict.
// A failed or empty quota fetch allows the publish: rate limiting is an
// observability aid here and must not block posting when the quota endpoint
// is down. The server still enforces the real limit.
func (l *Limiter) Check(ctx context.Context, forReplies bool) Decision {
	quota, err := l.fetcher.PublishingLimit(ctx, forReplies)
	if err != nil {
		log.Warn().Err(err).Bool("forReplies", forReplies).
			Msg("Quota check failed, proceeding without rate limiting")
		return Decision{Action: ActionProceed}
	}
	if quota == nil {
		log.Debug().Bool("forReplies", forReplies).Msg("No quota data reported, proceeding")
		return Decision{Action: ActionProceed}
	}

	if quota.Usage > quota.Total {
		if l.waitOnLimit {
			log.Info().Int64("usage", quota.Usage).Int64("total", quota.Total).
				Dur("wait", quota.Window).Msg("Publishing quota exhausted, waiting out the window")
			return Decision{Action: ActionWait, Wait: quota.Window, Quota: quota}
		}
		log.Warn().Int64("usage", quota.Usage).Int64("total", quota.Total).
			Msg("Publishing quota exhausted")
		return Decision{Action: ActionReject, Quota: quota}
	}

	log.Debug().Int64("usage", quota.Usage).Int64("total", quota.Total).
		Bool("forReplies", forReplies).Msg("Quota check passed")
	return Decision{Action: ActionProceed, Quota: quota}
}
