package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationTypeRequiredPermission(t *testing.T) {
	cases := map[ModerationType]string{
		ModerationWarn:  PermWarnPlayer,
		ModerationKick:  PermKickPlayer,
		ModerationMute:  PermKickPlayer,
		ModerationBan:   PermBanUser,
		ModerationUnban: PermBanUser,
	}

	for typ, want := range cases {
		got, err := typ.RequiredPermission()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ModerationType("shadowban").RequiredPermission()
	assert.Error(t, err)
}

func TestModerationRequestValidate(t *testing.T) {
	valid := &ModerationRequest{
		Type:         ModerationWarn,
		TargetUserID: "u1",
		ModeratorID:  "m1",
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&ModerationRequest{Type: "bogus", TargetUserID: "u1", ModeratorID: "m1"}).Validate())
	assert.Error(t, (&ModerationRequest{Type: ModerationWarn, ModeratorID: "m1"}).Validate())
	assert.Error(t, (&ModerationRequest{Type: ModerationWarn, TargetUserID: "u1"}).Validate())

	neg := -5
	assert.Error(t, (&ModerationRequest{Type: ModerationMute, TargetUserID: "u1", ModeratorID: "m1", Duration: &neg}).Validate())

	zero := 0
	assert.NoError(t, (&ModerationRequest{Type: ModerationMute, TargetUserID: "u1", ModeratorID: "m1", Duration: &zero}).Validate())
}
