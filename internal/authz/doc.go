// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package authz enforces the RPC exposure table using Casbin.
//
// Every API call is a (resource, method) pair. A method is public when the
// policy grants it to the anonymous subject and private when only the user
// subject holds it. A caller with a session is the user subject; everybody
// else is anonymous.
//
// # Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
//
// # Policy
//
//	p, anonymous, ecobee, authorize
//	p, user, thermostat, sync
//	g, user, anonymous
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
//	if err != nil {
//	    return err
//	}
//	defer enforcer.Close()
//
//	if err := enforcer.Check(session != nil, "thermostat", "sync"); err != nil {
//	    // models.CodeSessionRequired or models.CodeUnknownMethod
//	}
//
// Decisions are cached per (subject, resource, method) for CacheTTL.
package authz
