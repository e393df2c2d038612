// Package classifier decides which pool updates the tracker follows.
package classifier

import (
	"strings"

	"community-token-tracker/internal/domain"
)

// CommunityLinkPrefix is the host+path prefix of an X community link.
const CommunityLinkPrefix = "x.com/i/communities/"

// Reason explains a classifier decision.
type Reason string

// Decision reasons in precedence order.
const (
	ReasonAccepted           Reason = "accepted"
	ReasonNotTargetPlatform  Reason = "not_target_platform"
	ReasonNoCommunityLink    Reason = "no_community_link"
	ReasonCreatedBeforeStart Reason = "created_before_start"
)

// Decision carries each predicate result and the first failing reason.
type Decision struct {
	Origin    bool
	Community bool
	Fresh     bool
	Reason    Reason
}

// Accepted reports whether all predicates passed.
func (d Decision) Accepted() bool {
	return d.Origin && d.Community && d.Fresh
}

// Classifier filters pool updates by platform origin, community link and
// freshness. It holds no state; the zero value is ready to use.
type Classifier struct{}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{}
}

// Accept reports whether the event passes all predicates.
// startTime is the process start in Unix seconds.
func (c *Classifier) Accept(ev *domain.PoolUpdateEvent, startTime int64) bool {
	return c.Evaluate(ev, startTime).Accepted()
}

// Evaluate computes every predicate for ev.
func (c *Classifier) Evaluate(ev *domain.PoolUpdateEvent, startTime int64) Decision {
	d := Decision{
		Origin:    IsTargetPlatform(ev),
		Community: HasCommunityLink(ev),
		Fresh:     ev.CreatedAt >= startTime,
	}

	switch {
	case !d.Origin:
		d.Reason = ReasonNotTargetPlatform
	case !d.Community:
		d.Reason = ReasonNoCommunityLink
	case !d.Fresh:
		d.Reason = ReasonCreatedBeforeStart
	default:
		d.Reason = ReasonAccepted
	}
	return d
}

// IsTargetPlatform accepts pump.fun pools before and right after migration.
func IsTargetPlatform(ev *domain.PoolUpdateEvent) bool {
	if ev.Factory == domain.PlatformPump {
		return true
	}
	return ev.PreFactory != nil && *ev.PreFactory == domain.PlatformPump &&
		ev.Factory == domain.PlatformPumpAMM
}

// HasCommunityLink reports whether any social URL points at an X community.
func HasCommunityLink(ev *domain.PoolUpdateEvent) bool {
	for _, u := range ev.SocialURLs() {
		if strings.Contains(u, CommunityLinkPrefix) {
			return true
		}
	}
	return false
}

// CommunityID extracts the community id from the first social URL that
// carries a community link (twitter before website). Returns "" when absent.
func CommunityID(ev *domain.PoolUpdateEvent) string {
	for _, u := range ev.SocialURLs() {
		if id, ok := ParseCommunityID(u); ok {
			return id
		}
	}
	return ""
}

// ParseCommunityID extracts the id segment following CommunityLinkPrefix.
func ParseCommunityID(url string) (string, bool) {
	_, rest, found := strings.Cut(url, CommunityLinkPrefix)
	if !found {
		return "", false
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
