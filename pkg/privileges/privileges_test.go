package privileges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasRequiresEveryBit(t *testing.T) {
	p := Unrestricted | Verified
	assert.True(t, p.Has(Unrestricted))
	assert.True(t, p.Has(Unrestricted|Verified))
	assert.False(t, p.Has(Unrestricted|Donator))
}

func TestHasAnyRequiresOnlyOneBit(t *testing.T) {
	p := Moderator
	assert.True(t, p.HasAny(Staff))
	assert.False(t, p.HasAny(Donator))
}

func TestToClientPlainUserIsJustPlayer(t *testing.T) {
	assert.Equal(t, ClientPlayer, ToClient(Unrestricted|Verified))
}

func TestToClientFoldsStaffIntoClientModerator(t *testing.T) {
	out := ToClient(Unrestricted | Moderator)
	assert.True(t, out&ClientModerator != 0)
}

func TestToClientFoldsDonatorIntoClientSupporter(t *testing.T) {
	out := ToClient(Unrestricted | Donator)
	assert.True(t, out&ClientSupporter != 0)
}

func TestToClientFoldsAdminAndDeveloperAndTourneyManager(t *testing.T) {
	out := ToClient(Unrestricted | Administrator | Developer | TourneyManager)
	assert.True(t, out&ClientOwner != 0)
	assert.True(t, out&ClientDeveloper != 0)
	assert.True(t, out&ClientTournamentStaff != 0)
}

func TestToClientRestrictedAccountHasNoClientPrivileges(t *testing.T) {
	assert.Equal(t, ClientPrivileges(0), ToClient(Verified))
}
