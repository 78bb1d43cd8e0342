// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"context"
	"fmt"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/models"
)

const providerEcobee = "ecobee"

type ecobeeInitializeArgs struct {
	Code             string `json:"code" validate:"max=512"`
	State            string `json:"state" validate:"max=2048"`
	Error            string `json:"error" validate:"max=256"`
	ErrorDescription string `json:"error_description" validate:"max=1024"`
}

// ecobeeAuthorize redirects to the ecobee authorize page.
func (h *Handler) ecobeeAuthorize(_ context.Context, _ *Call) (*Result, error) {
	state, err := h.state.Issue(providerEcobee, 0)
	if err != nil {
		return nil, err
	}
	return &Result{Redirect: h.ecobee.AuthorizeURL(state)}, nil
}

// ecobeeInitialize is the ecobee OAuth callback. It signs the browser in as
// the user owning the authorized thermostats, or as a new anonymous user.
func (h *Handler) ecobeeInitialize(ctx context.Context, c *Call) (*Result, error) {
	var args ecobeeInitializeArgs
	if err := c.Bind(&args); err != nil {
		return nil, err
	}

	if args.Code == "" {
		msg := "Unhandled error"
		if args.Error != "" {
			msg = args.ErrorDescription
			if msg == "" {
				msg = args.Error
			}
		}
		return nil, models.NewCodedError(models.CodeInvalidArgument, msg)
	}
	if _, err := h.state.Verify(args.State, providerEcobee); err != nil {
		return nil, err
	}

	tok, err := h.ecobeeTokens.Obtain(ctx, args.Code)
	if err != nil {
		return nil, err
	}

	thermostats, err := h.ecobee.RegisteredThermostats(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	guids := make([]string, 0, len(thermostats))
	var emails []string
	for i := range thermostats {
		guids = append(guids, thermostats[i].GUID())
		settings, err := thermostats[i].NotificationSettingsInfo()
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Skipping unreadable notification settings")
			continue
		}
		emails = append(emails, settings.EmailAddresses...)
	}

	owner, err := h.existingOwner(ctx, guids)
	if err != nil {
		return nil, err
	}

	if owner != 0 {
		if err := h.users.ForceLogIn(ctx, c.w, c.r, owner); err != nil {
			return nil, err
		}
		if _, err := h.ecobeeTokens.Save(ctx, owner, tok); err != nil {
			return nil, err
		}
		logging.Ctx(ctx).Info().Int64("user_id", owner).Msg("Returning ecobee user signed in")
	} else {
		u, err := h.users.CreateAnonymousUser(ctx, c.w, c.r)
		if err != nil {
			return nil, err
		}
		if _, err := h.ecobeeTokens.Save(ctx, u.UserID, tok); err != nil {
			return nil, err
		}
		if len(emails) > 0 && h.mailing != nil {
			if err := h.mailing.Subscribe(ctx, emails[0]); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Int64("user_id", u.UserID).Msg("Mailing list subscription failed")
			}
		}
	}

	return &Result{Redirect: h.config.Server.RootURI + "dashboard/"}, nil
}

// existingOwner returns the user owning every known thermostat among
// guids, deleted rows included, or zero when there are none or several.
func (h *Handler) existingOwner(ctx context.Context, guids []string) (int64, error) {
	if len(guids) == 0 {
		return 0, nil
	}
	rows, err := database.List[models.EcobeeThermostat](ctx, h.db, database.Filter{
		Where:       map[string]any{"guid": guids},
		WithDeleted: true,
	})
	if err != nil {
		return 0, fmt.Errorf("look up thermostat owners: %w", err)
	}

	owners := make(map[int64]struct{})
	for _, row := range rows {
		owners[row.UserID] = struct{}{}
	}
	if len(owners) != 1 {
		if len(owners) > 1 {
			logging.Ctx(ctx).Warn().Int("owners", len(owners)).Msg("Thermostats belong to several users; creating a new user")
		}
		return 0, nil
	}
	for id := range owners {
		return id, nil
	}
	return 0, nil
}

