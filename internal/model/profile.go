package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Profile is the one-to-one extension of a User. Unset fields are nil.
type Profile struct {
	UserID      int64      `json:"-"`
	Bio         *string    `json:"bio"`
	AvatarURL   *string    `json:"avatar_url"`
	DisplayName *string    `json:"display_name"`
	Location    *string    `json:"location"`
	Website     *string    `json:"website"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// ProfileUpdateRequest replaces every profile field; omitted or empty fields
// are stored as null.
type ProfileUpdateRequest struct {
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
	DisplayName string `json:"display_name"`
	Location    string `json:"location"`
	Website     string `json:"website"`
}

func (r ProfileUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Bio, validation.RuneLength(0, 1000)),
		validation.Field(&r.AvatarURL, validation.RuneLength(0, 2048)),
		validation.Field(&r.DisplayName, validation.RuneLength(0, 100)),
		validation.Field(&r.Location, validation.RuneLength(0, 100)),
		validation.Field(&r.Website, validation.RuneLength(0, 255)),
	)
}

// Fields lists the JSON names of the fields the request sets.
func (r ProfileUpdateRequest) Fields() []string {
	var fields []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"bio", r.Bio},
		{"avatar_url", r.AvatarURL},
		{"display_name", r.DisplayName},
		{"location", r.Location},
		{"website", r.Website},
	} {
		if f.value != "" {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// ProfileResponse wraps a profile for the profile endpoints.
type ProfileResponse struct {
	Profile any `json:"profile"`
}
