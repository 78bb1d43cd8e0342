// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/beestat/internal/cache"
	"github.com/tomtom215/beestat/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Subjects of the exposure model.
const (
	SubjectAnonymous = "anonymous"
	SubjectUser      = "user"
)

// EnforcerConfig holds configuration for the Casbin enforcer.
type EnforcerConfig struct {
	// PolicyPath overrides the embedded exposure table when it names an
	// existing file.
	PolicyPath string

	// CacheEnabled enables enforcement decision caching.
	CacheEnabled bool

	// CacheTTL is how long to cache decisions.
	CacheTTL time.Duration
}

// DefaultEnforcerConfig returns default configuration.
func DefaultEnforcerConfig() *EnforcerConfig {
	return &EnforcerConfig{
		CacheEnabled: true,
		CacheTTL:     5 * time.Minute,
	}
}

// Enforcer wraps the Casbin enforcer with a decision cache.
type Enforcer struct {
	config    *EnforcerConfig
	enforcer  *casbin.SyncedEnforcer
	decisions *cache.Cache[bool]
}

// NewEnforcer creates the exposure enforcer.
func NewEnforcer(config *EnforcerConfig) (*Enforcer, error) {
	if config == nil {
		config = DefaultEnforcerConfig()
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		config:   config,
		enforcer: enforcer,
	}
	if config.CacheEnabled {
		e.decisions = cache.New[bool]("authz", config.CacheTTL, 1024)
	}
	return e, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce checks if subject may call resource.method.
func (e *Enforcer) Enforce(subject, resource, method string) (bool, error) {
	start := time.Now()
	key := subject + ":" + resource + "." + method

	if e.decisions != nil {
		if allowed, ok := e.decisions.Get(key); ok {
			observeDecision(subject, resource, allowed, true, time.Since(start))
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(subject, resource, method)
	if err != nil {
		enforceErrors.Inc()
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.decisions != nil {
		e.decisions.Set(key, allowed)
	}
	observeDecision(subject, resource, allowed, false, time.Since(start))
	return allowed, nil
}

// Check decides whether a caller may invoke resource.method. It returns a
// coded error: CodeSessionRequired when the method is private and the
// caller is anonymous, CodeUnknownMethod when no subject may call it.
func (e *Enforcer) Check(authenticated bool, resource, method string) error {
	subject := SubjectAnonymous
	if authenticated {
		subject = SubjectUser
	}

	allowed, err := e.Enforce(subject, resource, method)
	if err != nil {
		return err
	}
	if allowed {
		return nil
	}

	if !authenticated {
		private, err := e.Enforce(SubjectUser, resource, method)
		if err != nil {
			return err
		}
		if private {
			return models.NewCodedError(models.CodeSessionRequired,
				fmt.Sprintf("%s.%s requires a session", resource, method))
		}
	}
	return models.NewCodedError(models.CodeUnknownMethod,
		fmt.Sprintf("unknown method %s.%s", resource, method))
}

// Exposure returns the public and private methods of resource, sorted.
func (e *Enforcer) Exposure(resource string) (public, private []string) {
	//nolint:errcheck // GetFilteredPolicy only fails if enforcer is nil
	rules, _ := e.enforcer.GetFilteredPolicy(1, resource)
	for _, rule := range rules {
		switch rule[0] {
		case SubjectAnonymous:
			public = append(public, rule[2])
		case SubjectUser:
			private = append(private, rule[2])
		}
	}
	sort.Strings(public)
	sort.Strings(private)
	return public, private
}

// Close stops the decision cache.
func (e *Enforcer) Close() {
	if e.decisions != nil {
		e.decisions.Close()
	}
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
