package models

import (
	"math"
	"time"
)

// Policy domain bounds. Values outside these ranges are clamped, never rejected.
const (
	MinTTLSeconds = 30
	MaxTTLSeconds = 3600

	MinRefreshThreshold = 0.5
	MaxRefreshThreshold = 0.95

	DefaultTTLSeconds       = 300
	DefaultRefreshThreshold = 0.8
)

// CachePolicy governs every engine operation. It is owned by a single engine
// instance and mutated only through Configure.
type CachePolicy struct {
	Enabled                    bool    `json:"enabled"`
	TTL                        int     `json:"ttl"` // seconds
	BackgroundRefresh          bool    `json:"background_refresh"`
	BackgroundRefreshThreshold float64 `json:"background_refresh_threshold"`
}

// DefaultPolicy returns the policy used when neither configuration nor
// persisted state provide one.
func DefaultPolicy() CachePolicy {
	return CachePolicy{
		Enabled:                    true,
		TTL:                        DefaultTTLSeconds,
		BackgroundRefresh:          true,
		BackgroundRefreshThreshold: DefaultRefreshThreshold,
	}
}

// TTLDuration returns the policy TTL as a time.Duration
func (p CachePolicy) TTLDuration() time.Duration {
	return time.Duration(p.TTL) * time.Second
}

// Clamp returns a copy of the policy with every field inside its domain
func (p CachePolicy) Clamp() CachePolicy {
	p.TTL = ClampTTL(p.TTL)
	p.BackgroundRefreshThreshold = ClampThreshold(p.BackgroundRefreshThreshold)
	return p
}

// Apply merges the non-nil fields of patch into the policy and clamps the result.
func (p CachePolicy) Apply(patch PolicyPatch) CachePolicy {
	if patch.Enabled != nil {
		p.Enabled = *patch.Enabled
	}
	if patch.TTL != nil {
		p.TTL = *patch.TTL
	}
	if patch.BackgroundRefresh != nil {
		p.BackgroundRefresh = *patch.BackgroundRefresh
	}
	if patch.BackgroundRefreshThreshold != nil {
		p.BackgroundRefreshThreshold = *patch.BackgroundRefreshThreshold
	}
	return p.Clamp()
}

// PolicyPatch is a partial policy update. Nil fields are left untouched.
type PolicyPatch struct {
	Enabled                    *bool    `json:"enabled,omitempty" yaml:"enabled"`
	TTL                        *int     `json:"ttl,omitempty" yaml:"ttl"`
	BackgroundRefresh          *bool    `json:"background_refresh,omitempty" yaml:"background_refresh"`
	BackgroundRefreshThreshold *float64 `json:"background_refresh_threshold,omitempty" yaml:"background_refresh_threshold"`
}

// IsEmpty reports whether the patch changes nothing
func (p PolicyPatch) IsEmpty() bool {
	return p.Enabled == nil && p.TTL == nil && p.BackgroundRefresh == nil && p.BackgroundRefreshThreshold == nil
}

// ClampTTL bounds a TTL in seconds to [MinTTLSeconds, MaxTTLSeconds]
func ClampTTL(ttl int) int {
	if ttl < MinTTLSeconds {
		return MinTTLSeconds
	}
	if ttl > MaxTTLSeconds {
		return MaxTTLSeconds
	}
	return ttl
}

// ClampThreshold bounds a refresh threshold to [MinRefreshThreshold, MaxRefreshThreshold].
// NaN maps to the lower bound.
func ClampThreshold(threshold float64) float64 {
	if math.IsNaN(threshold) || threshold < MinRefreshThreshold {
		return MinRefreshThreshold
	}
	if threshold > MaxRefreshThreshold {
		return MaxRefreshThreshold
	}
	return threshold
}
