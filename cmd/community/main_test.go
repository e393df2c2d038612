package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-token-tracker/internal/xapi"
)

type stubAPI struct {
	gotID string
	admin string
	err   error
}

func (s *stubAPI) CommunityAdmin(_ context.Context, communityID string) (string, error) {
	s.gotID = communityID
	return s.admin, s.err
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"bare id", "1234567890", "1234567890"},
		{"community link", "https://x.com/i/communities/1234567890?s=20", "1234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{admin: "dev"}
			var buf bytes.Buffer

			require.NoError(t, lookup(context.Background(), &buf, api, tt.arg))
			assert.Equal(t, tt.want, api.gotID)
			assert.Equal(t, "Community: "+tt.want+"\nAdmin: @dev\n", buf.String())
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	var buf bytes.Buffer

	err := lookup(context.Background(), &buf, &stubAPI{err: &xapi.StatusError{Code: 401, Body: "unauthorized"}}, "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")

	err = lookup(context.Background(), &buf, &stubAPI{err: xapi.ErrNoAdmin}, "42")
	assert.ErrorIs(t, err, xapi.ErrNoAdmin)

	err = lookup(context.Background(), &buf, &stubAPI{}, "")
	assert.Error(t, err)
	assert.Empty(t, buf.String())
}
