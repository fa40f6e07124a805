package globals

// Context keys
type ContextKey string

const (
	UserIDKey   ContextKey = "userId"
	UsernameKey ContextKey = "username"
	TokenKey    ContextKey = "accessToken"
)

// AccessTokenCookie names the cookie holding the session JWT.
const AccessTokenCookie = "access_token"
