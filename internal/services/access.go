package services

import "github.com/medimg-lab/apiserver/types"

// CanViewDataset reports whether the user may read the dataset. Group
// datasets are visible to every authenticated user; private datasets only
// to their creator and to privileged users.
func CanViewDataset(user types.User, dataset types.Dataset) bool {
	if dataset.Visibility == types.VisibilityGroup {
		return true
	}
	if dataset.CreatedBy == user.ID {
		return true
	}
	return user.Role.Privileged()
}

// CanViewSample reports whether the user may read the sample, which
// inherits its parent dataset's visibility.
func CanViewSample(user types.User, dataset types.Dataset) bool {
	return CanViewDataset(user, dataset)
}

// CanDelete reports whether the user may delete a dataset or sample
// created by creatorID: the original creator, or a privileged user.
func CanDelete(user types.User, creatorID int) bool {
	return user.ID == creatorID || user.Role.Privileged()
}
