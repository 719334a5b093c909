package token

// Pair is the credential pair issued by the token endpoint. Access authorizes every API call;
// Refresh is only ever sent to the refresh endpoint to mint a new Access token.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// IsZero reports whether neither token is present.
func (p Pair) IsZero() bool {
	return p.Access == "" && p.Refresh == ""
}

// HasAccess reports whether an access token is present.
func (p Pair) HasAccess() bool {
	return p.Access != ""
}

// Complete reports whether both tokens are present. A pair missing either token is treated as
// an anonymous session.
func (p Pair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Credentials are the username/password sent to the token endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// String never includes the password.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + "}"
}

// RefreshRequest is the body of POST /token/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is returned by POST /token/refresh/. The refresh token is not rotated.
type RefreshResponse struct {
	Access string `json:"access"`
}

// VerifyRequest is the body of POST /token/verify/.
type VerifyRequest struct {
	Token string `json:"token"`
}
