package keycloak

// CredentialTypePassword is the Keycloak credential type for passwords.
const CredentialTypePassword = "password"

// UserRepresentation is the subset of Keycloak's admin user representation
// the provisioner submits on user creation.
type UserRepresentation struct {
	Username    string                     `json:"username"`
	Enabled     bool                       `json:"enabled"`
	Credentials []CredentialRepresentation `json:"credentials,omitempty"`
}

// CredentialRepresentation describes a credential attached to a new user.
type CredentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

// PasswordCredential returns a permanent password credential.
func PasswordCredential(password string) CredentialRepresentation {
	return CredentialRepresentation{
		Type:      CredentialTypePassword,
		Value:     password,
		Temporary: false,
	}
}

// NewUser returns an enabled user carrying a single permanent password.
func NewUser(username, password string) UserRepresentation {
	return UserRepresentation{
		Username:    username,
		Enabled:     true,
		Credentials: []CredentialRepresentation{PasswordCredential(password)},
	}
}
