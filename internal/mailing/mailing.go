// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package mailing subscribes new users to the beestat Mailgun mailing list.
package mailing

import (
	"context"
	"fmt"
	"strings"
	"time"

	mailgun "github.com/mailgun/mailgun-go/v3"

	"github.com/tomtom215/beestat/internal/config"
	"github.com/tomtom215/beestat/internal/logging"
)

const subscribeTimeout = 10 * time.Second

// memberCreator is the slice of the Mailgun client the subscriber uses.
type memberCreator interface {
	CreateMember(ctx context.Context, merge bool, addr string, prototype mailgun.Member) error
}

// Subscriber adds addresses to a mailing list. The zero value and a
// Subscriber built from an incomplete config are disabled no-ops.
type Subscriber struct {
	list    string
	members memberCreator
}

// New creates a Subscriber. It is disabled unless domain, API key and list
// address are all set.
func New(cfg config.MailgunConfig) *Subscriber {
	if cfg.Domain == "" || cfg.APIKey == "" || cfg.ListAddress == "" {
		return &Subscriber{}
	}
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &Subscriber{list: cfg.ListAddress, members: mg}
}

// Enabled reports whether subscriptions are sent.
func (s *Subscriber) Enabled() bool {
	return s != nil && s.members != nil
}

// Subscribe adds email to the list, updating the member if it already
// exists. It is a no-op when disabled or email is blank.
func (s *Subscriber) Subscribe(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !s.Enabled() || email == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	defer cancel()

	err := s.members.CreateMember(ctx, true, s.list, mailgun.Member{
		Address:    email,
		Subscribed: mailgun.Subscribed,
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.list, err)
	}
	logging.Ctx(ctx).Debug().Str("list", s.list).Msg("Subscribed address to mailing list")
	return nil
}
