package models

// Link is a social link shown on a profile page.
type Link struct {
	Label string `json:"label" bson:"label"`
	URL   string `json:"url"   bson:"url"`
	Icon  string `json:"icon"  bson:"icon"`
}

// Profile is the public page of a user: the row itself plus its content.
type Profile struct {
	User     *User     `json:"profile"`
	Posts    []Post    `json:"posts"`
	Comments []Comment `json:"comments"`
	Links    []Link    `json:"links"`
}

// UpdateLinksRequest is the JSON body for POST /api/profile/links.
type UpdateLinksRequest struct {
	Links []Link `json:"links"`
}
