package services

import (
	"testing"

	"github.com/medimg-lab/apiserver/types"
	"github.com/stretchr/testify/assert"
)

func TestCanViewDataset(t *testing.T) {
	creator := types.User{ID: 1, Role: types.RoleResearcher}
	other := types.User{ID: 2, Role: types.RoleResearcher}
	admin := types.User{ID: 3, Role: types.RoleAdmin}
	dataAdmin := types.User{ID: 4, Role: types.RoleDataAdmin}

	groupDataset := types.Dataset{ID: 10, Visibility: types.VisibilityGroup, CreatedBy: creator.ID}
	privateDataset := types.Dataset{ID: 11, Visibility: types.VisibilityPrivate, CreatedBy: creator.ID}

	cases := []struct {
		name    string
		viewer  types.User
		dataset types.Dataset
		want    bool
	}{
		{"group visible to creator", creator, groupDataset, true},
		{"group visible to other researcher", other, groupDataset, true},
		{"group visible to admin", admin, groupDataset, true},
		{"private visible to creator", creator, privateDataset, true},
		{"private hidden from other researcher", other, privateDataset, false},
		{"private visible to admin", admin, privateDataset, true},
		{"private visible to data admin", dataAdmin, privateDataset, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanViewDataset(tc.viewer, tc.dataset))
			assert.Equal(t, tc.want, CanViewSample(tc.viewer, tc.dataset))
		})
	}
}

func TestCanDelete(t *testing.T) {
	owner := types.User{ID: 1, Role: types.RoleResearcher}
	other := types.User{ID: 2, Role: types.RoleResearcher}
	admin := types.User{ID: 3, Role: types.RoleAdmin}

	assert.True(t, CanDelete(owner, owner.ID))
	assert.False(t, CanDelete(other, owner.ID))
	assert.True(t, CanDelete(admin, owner.ID))
}
