package models

import "time"

// User is the identity slice of the marketplace user row that the credential
// service reads when assembling access-token claims. The credential service
// never writes users; the user store is owned elsewhere.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// ProviderProfile is the optional service-provider extension of a user.
// Present only for users holding the provider role.
type ProviderProfile struct {
	ProviderID  string
	Status      string
	IsAvailable bool
}
