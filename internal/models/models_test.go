package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionLabel(t *testing.T) {
	tests := []struct {
		name string
		conn Connection
		want string
	}{
		{
			"handle preferred",
			Connection{UserID: 42, Handle: "alice", DisplayName: "Alice"},
			"@alice (42)",
		},
		{
			"display name fallback",
			Connection{UserID: 42, DisplayName: "Alice"},
			"Alice (42)",
		},
		{
			"id only",
			Connection{UserID: 42},
			"ID 42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conn.Label())
		})
	}
}

func TestRewardKindValid(t *testing.T) {
	assert.True(t, RewardPoints.Valid())
	assert.True(t, RewardCollectible.Valid())
	assert.False(t, RewardKind("gold").Valid())
	assert.False(t, RewardKind("").Valid())
}
