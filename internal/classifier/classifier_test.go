package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"community-token-tracker/internal/domain"
)

const start = int64(1_700_000_000)

func ptr[T any](v T) *T { return &v }

func event(factory string, preFactory *string, twitter, website *string, createdAt int64) *domain.PoolUpdateEvent {
	return &domain.PoolUpdateEvent{
		PoolAddress: "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
		Factory:     factory,
		PreFactory:  preFactory,
		MarketCap:   "5000",
		CreatedAt:   createdAt,
		BaseInfo: domain.BaseTokenInfo{
			Twitter: twitter,
			Website: website,
		},
	}
}

func TestClassifier_Evaluate(t *testing.T) {
	community := ptr("https://x.com/i/communities/1876543210")
	profile := ptr("https://x.com/someone")

	tests := []struct {
		name   string
		ev     *domain.PoolUpdateEvent
		reason Reason
	}{
		{"pump with community", event("pump", nil, community, nil, start), ReasonAccepted},
		{"migrated pump", event("pumpamm", ptr("pump"), community, nil, start+10), ReasonAccepted},
		{"community on website", event("pump", nil, profile, community, start), ReasonAccepted},
		{"pumpamm without predecessor", event("pumpamm", nil, community, nil, start), ReasonNotTargetPlatform},
		{"pumpamm from other", event("pumpamm", ptr("raydium"), community, nil, start), ReasonNotTargetPlatform},
		{"other platform", event("raydium", nil, community, nil, start), ReasonNotTargetPlatform},
		{"profile link only", event("pump", nil, profile, nil, start), ReasonNoCommunityLink},
		{"no socials", event("pump", nil, nil, nil, start), ReasonNoCommunityLink},
		{"created before start", event("pump", nil, community, nil, start-1), ReasonCreatedBeforeStart},
		{"platform beats freshness", event("raydium", nil, nil, nil, start-1), ReasonNotTargetPlatform},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Evaluate(tt.ev, start)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.reason == ReasonAccepted, d.Accepted())
			assert.Equal(t, d.Accepted(), c.Accept(tt.ev, start))
		})
	}
}

func TestClassifier_Pure(t *testing.T) {
	c := New()
	ev := event("pump", nil, ptr("https://x.com/i/communities/42"), nil, start)

	first := c.Evaluate(ev, start)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Evaluate(ev, start))
	}
	assert.Equal(t, first, (&Classifier{}).Evaluate(ev, start))
}

func TestParseCommunityID(t *testing.T) {
	tests := []struct {
		url string
		id  string
		ok  bool
	}{
		{"https://x.com/i/communities/1876543210", "1876543210", true},
		{"https://x.com/i/communities/1876543210/", "1876543210", true},
		{"https://x.com/i/communities/1876543210/members", "1876543210", true},
		{"https://x.com/i/communities/1876543210?s=20", "1876543210", true},
		{"https://x.com/i/communities/1876543210#top", "1876543210", true},
		{"x.com/i/communities/99", "99", true},
		{"https://x.com/i/communities/", "", false},
		{"https://twitter.com/i/communities/5", "", false},
		{"https://x.com/someone", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			id, ok := ParseCommunityID(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestCommunityID_TwitterFirst(t *testing.T) {
	ev := event("pump", nil,
		ptr("https://x.com/i/communities/111"),
		ptr("https://x.com/i/communities/222"),
		start)
	assert.Equal(t, "111", CommunityID(ev))

	ev = event("pump", nil, ptr("https://x.com/dev"), ptr("https://x.com/i/communities/222"), start)
	assert.Equal(t, "222", CommunityID(ev))

	ev = event("pump", nil, ptr("https://x.com/i/communities/"), nil, start)
	assert.Equal(t, "", CommunityID(ev))
}
