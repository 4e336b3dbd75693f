package middleware

import (
	"log/slog"
	"net/http"
	"regexp"

	"github.com/golang-jwt/jwt/v5"
)

var userIDPattern = regexp.MustCompile(`^[a-fA-F0-9]{24}$`)

// NewAdmissionGate validates a connecting client before any gateway state is
// touched. The client passes two query parameters: `token` (bearer
// credential) and `userId` (24-character hexadecimal identity). The request
// is refused when either is absent, the identity is malformed, the token
// fails signature or expiry verification, or the token's subject does not
// equal the claimed identity. Failure is terminal for the attempt; the
// server never retries.
func NewAdmissionGate(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				// metadata middleware did not run; wiring bug
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			query := r.URL.Query()
			tokenString := query.Get("token")
			claimedID := query.Get("userId")

			if tokenString == "" || claimedID == "" {
				logger.Warn("Connection attempt missing credentials", slog.String("ip", reqMeta.IP))
				http.Error(w, "Missing token or userId", http.StatusUnauthorized)
				return
			}
			if !userIDPattern.MatchString(claimedID) {
				logger.Warn("Connection attempt with malformed userId", slog.String("ip", reqMeta.IP))
				http.Error(w, "Malformed userId", http.StatusUnauthorized)
				return
			}

			// Parse and validate the JWT with HMAC signing; expiry is
			// checked by the parser.
			token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("Invalid token presented", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*jwt.RegisteredClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("Valid token missing 'sub' claim", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Subject != claimedID {
				logger.Warn("Token subject does not match claimed userId", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			reqMeta.UserID = claimedID
			next.ServeHTTP(w, r)
		})
	}
}
