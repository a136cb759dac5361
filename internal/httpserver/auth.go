// internal/httpserver/auth.go
//
// Accounts for players who want stats across games.
// Responsibilities:
//   - Signup/login/logout with bcrypt-hashed passwords and an HS256 JWT
//     delivered as an HttpOnly cookie (or read from Authorization: Bearer).
//   - Optional-auth middleware that decorates requests with the account.
//   - Require-auth guard for /auth/me, /stats/me and /games/mine.
//   - Claiming a guest's earlier games on signup/login. The userId comes
//     from a signed guest cookie set when the guest started playing, never
//     from the request body.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/rgb-alchemy/internal/storage"
)

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// currentUser returns the authenticated account, or nil for guests.
func currentUser(r *http.Request) *authUser {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return me
}

// credentials is the signup/login payload.
type credentials struct {
	Username string `json:"username" validate:"required,min=3,max=24,username"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	validate   = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	return v
}

// signupError turns validation failures into a message for the client.
func signupError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid input"
	}
	switch fe := verrs[0]; fe.Field() {
	case "Username":
		if fe.Tag() == "username" {
			return "username: letters, numbers, underscore only"
		}
		return "username must be 3-24 chars"
	default:
		return "password must be 8-100 chars"
	}
}

// mountAuthRoutes registers authentication + gated routes.
func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/auth/me", s.handleMe)
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

// handleSignup creates a new user, signs a JWT, sets auth cookie, and claims guest history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, signupError(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash_failed")
		return
	}
	u, err := s.db.CreateUser(r.Context(), body.Username, string(hash))
	if errors.Is(err, storage.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username taken")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create user")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if !s.issueToken(w, u) {
		return
	}
	s.claimGames(w, r, u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates user, sets cookie, and claims guest history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.db.FindUserByUsername(r.Context(), body.Username)
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !s.issueToken(w, u) {
		return
	}
	s.claimGames(w, r, u.ID)
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "username": u.Username})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	u, err := s.db.FindUserByID(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          u.ID,
		"gamesPlayed": u.GamesPlayed,
		"wins":        u.Wins,
		"streak":      u.Streak,
	})
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.db.GamesByAccount(r.Context(), currentUser(r).ID, 50)
	if err != nil {
		log.Error().Err(err).Msg("games by account")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// claimGames transfers the games of the guest named by the caller's guest
// cookie to accountID, then drops the cookie.
func (s *Server) claimGames(w http.ResponseWriter, r *http.Request, accountID string) {
	playerID := s.guestID(r)
	if playerID == "" {
		return
	}
	n, err := s.db.ClaimPlayerGames(r.Context(), playerID, accountID)
	if err != nil {
		log.Warn().Err(err).Msg("claim guest games")
		return
	}
	s.clearGuestCookie(w)
	if n > 0 {
		log.Info().Str("account", accountID).Int64("games", n).Msg("claimed guest games")
	}
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// ------------------------------ JWT & cookies ------------------------------

// issueToken signs a JWT for u and sets the auth cookie. On failure it
// writes the error response and returns false.
func (s *Server) issueToken(w http.ResponseWriter, u *storage.User) bool {
	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setAuthCookie(w, tok, exp)
	return true
}

// signJWT creates an HS256 JWT with id/username and a JWT_EXPIRES_DAYS expiry.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.env.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.env.JWTSecret))
	return ss, exp, err
}

// parseToken validates tokenStr and returns its subject.
func (s *Server) parseToken(tokenStr string) (*authUser, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, s.jwtKey, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, errors.New("invalid token")
	}
	return &authUser{ID: id, Username: username}, nil
}

func (s *Server) jwtKey(*jwt.Token) (interface{}, error) {
	return []byte(s.env.JWTSecret), nil
}

// guestCookieName names the cookie holding a signed guest userId.
func (s *Server) guestCookieName() string { return s.env.CookieName + "_guest" }

// setGuestCookie records that this browser started a game as userID. The
// token has no id/username claims, so parseToken never accepts it.
func (s *Server) setGuestCookie(w http.ResponseWriter, userID string) {
	now := time.Now()
	exp := now.Add(time.Duration(s.env.JWTExpiresDays) * 24 * time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"guest": userID,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}).SignedString([]byte(s.env.JWTSecret))
	if err != nil {
		log.Warn().Err(err).Msg("sign guest token")
		return
	}
	c := s.cookie(tok)
	c.Name = s.guestCookieName()
	c.Expires = exp
	http.SetCookie(w, c)
}

// guestID returns the userId from a valid guest cookie, or "".
func (s *Server) guestID(r *http.Request) string {
	c, err := r.Cookie(s.guestCookieName())
	if err != nil {
		return ""
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, s.jwtKey, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return ""
	}
	id, _ := claims["guest"].(string)
	return id
}

func (s *Server) clearGuestCookie(w http.ResponseWriter) {
	c := s.cookie("")
	c.Name = s.guestCookieName()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (s *Server) cookie(value string) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.env.Production {
		sameSite = http.SameSiteNoneMode // required for cross-site use when Secure
	}
	return &http.Cookie{
		Name:     s.env.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.env.Production,
		SameSite: sameSite,
	}
}

// setAuthCookie writes the auth token cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := s.cookie(token)
	c.Expires = exp
	http.SetCookie(w, c)
}

// clearAuthCookie deletes the auth token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.env.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// ---------------------------- auth middleware ------------------------------

// withOptionalAuth decorates requests with the account if a valid JWT is
// present. It never rejects; guests are allowed everywhere it is used.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := s.bearerOrCookie(r); tok != "" {
			if me, err := s.parseToken(tok); err == nil {
				// the account may have been deleted since the token was issued
				if _, err := s.db.FindUserByID(r.Context(), me.ID); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests that withOptionalAuth did not authenticate.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if currentUser(r) == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
