// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package view

// Region identifies an element of the page.
type Region string

const (
	RegionLoading        Region = "loading"
	RegionError          Region = "error"
	RegionErrorDetails   Region = "error-details"
	RegionApp            Region = "app"
	RegionLoggedOut      Region = "logged-out"
	RegionLoggedIn       Region = "logged-in"
	RegionProfile        Region = "profile"
	RegionProfileName    Region = "profile-name"
	RegionProfileEmail   Region = "profile-email"
	RegionProfilePicture Region = "profile-picture"
	RegionAPIOutput      Region = "api-output"
)

// Display is the set of regions a page is made of.  Implementations must be
// safe for concurrent use.
type Display interface {
	// SetVisible shows or hides the region.
	SetVisible(r Region, visible bool)

	// SetText replaces the region's text.
	SetText(r Region, text string)

	// SetImage sets the region's image source, along with the source to use
	// if the image fails to load.
	SetImage(r Region, src, fallback string)
}

// Batcher is implemented by Displays which can apply several writes at once:
// either every write of the batch is applied or, when one panics, none are.
type Batcher interface {
	Batch(write func(Display))
}
