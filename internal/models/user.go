package models

// ProfileMini is the embedded profile summary the backend attaches to users.
type ProfileMini struct {
	PhotoURL *string `json:"photo_url,omitempty"`
	Bio      string  `json:"bio,omitempty"`
}

// User is a participant or message sender as returned by the backend.
type User struct {
	ID          int          `json:"id"`
	DisplayName string       `json:"nom_utilisateur"`
	PhotoURL    *string      `json:"photo_url,omitempty"`
	Profile     *ProfileMini `json:"profile,omitempty"`
}

// AvatarURL returns the user's photo, preferring the top-level search field.
func (u User) AvatarURL() string {
	if u.PhotoURL != nil && *u.PhotoURL != "" {
		return *u.PhotoURL
	}
	if u.Profile != nil && u.Profile.PhotoURL != nil {
		return *u.Profile.PhotoURL
	}
	return ""
}

// Profile is the authenticated user's own profile. The backend does not
// return the user id here.
type Profile struct {
	DisplayName string  `json:"nom_utilisateur"`
	Email       string  `json:"email"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Bio         string  `json:"bio,omitempty"`
}
