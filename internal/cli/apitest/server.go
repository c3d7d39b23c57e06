// Package apitest runs an in-memory stand-in for the People Matter auth API.
//
// It speaks the same wire format as the real backend: a {message, data}
// envelope, an HS256 session token in the "jwt" cookie, and gorm-style
// numeric "ID" fields on user records.
package apitest

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	// Prefix is the path prefix every endpoint is mounted under
	Prefix = "/api/v1"

	cookieName    = "jwt"
	sessionLength = 72 * time.Hour
)

// User is the profile record served by the fake
type User struct {
	ID         uint   `json:"ID"`
	Email      string `json:"email"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	MiddleName string `json:"middleName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	IsAdmin    bool   `json:"isAdmin"`
	CompanyID  uint   `json:"companyId,omitempty"`
}

// Claims mirrors the claims the backend signs into the session cookie
type Claims struct {
	ID        uint   `json:"id"`
	CompanyID uint   `json:"companyId"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type account struct {
	user         User
	passwordHash []byte
}

type response struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Server is a running fake API
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	accounts map[string]*account
	nextID   uint
	forced   map[string]int
	calls    map[string]int
}

// New starts a fake API that is shut down when the test ends
func New(t testing.TB) *Server {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:   newSecret(),
		accounts: make(map[string]*account),
		nextID:   1,
		forced:   make(map[string]int),
		calls:    make(map[string]int),
	}

	router := gin.New()
	api := router.Group(Prefix, s.countCalls, s.forcedStatus)
	{
		auth := api.Group("/auth")
		auth.POST("/signin", s.signin)
		auth.POST("/signup", s.signup)
		auth.POST("/signout", s.signout)
		auth.GET("/csrf", s.csrf)
		auth.GET("/check", s.requireSession, s.check)

		api.GET("/user/current", s.requireSession, s.currentUser)
	}

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)

	return s
}

func newSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("apitest: failed to generate secret: %v", err))
	}
	return b
}

// AddUser registers an account and returns its stored profile
func (s *Server) AddUser(password string, u User) User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("apitest: failed to hash password: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = s.nextID
	s.nextID++
	s.accounts[strings.ToLower(u.Email)] = &account{user: u, passwordHash: hash}
	return u
}

// Fail makes every request to path (relative to Prefix) answer with status
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced[Prefix+path] = status
}

// Recover undoes every Fail
func (s *Server) Recover() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = make(map[string]int)
}

// ExpireSessions invalidates every cookie issued so far
func (s *Server) ExpireSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = newSecret()
}

// Calls reports how many requests reached path (relative to Prefix)
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[Prefix+path]
}

// IssueToken signs a session token for the account with the given email
func (s *Server) IssueToken(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", fmt.Errorf("apitest: unknown account %q", email)
	}
	return s.signLocked(acc.user)
}

func (s *Server) signLocked(u User) (string, error) {
	role := "user"
	if u.IsAdmin {
		role = "admin"
	}
	claims := Claims{
		ID:        u.ID,
		CompanyID: u.CompanyID,
		Role:      role,
		Email:     u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionLength)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) countCalls(c *gin.Context) {
	s.mu.Lock()
	s.calls[c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) forcedStatus(c *gin.Context) {
	s.mu.Lock()
	status, ok := s.forced[c.Request.URL.Path]
	s.mu.Unlock()

	if ok {
		c.AbortWithStatusJSON(status, response{Message: http.StatusText(status)})
		return
	}
	c.Next()
}

func (s *Server) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetCookie(cookieName, value, maxAge, "/", "", false, true)
}

type signinRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) signin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Message: "invalid form data"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok {
		c.JSON(http.StatusNotFound, response{Message: "user not found"})
		return
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, response{Message: "invalid credentials"})
		return
	}

	token, err := s.signLocked(acc.user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Message: "something went wrong"})
		return
	}
	s.setCookie(c, token, int(sessionLength.Seconds()))
	c.JSON(http.StatusOK, response{Message: "user has been signed in", Data: acc.user})
}

type signupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

func (s *Server) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Message: "invalid email"})
		return
	}
	if req.Password != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, response{Message: "passwords do not match"})
		return
	}

	s.mu.Lock()
	_, exists := s.accounts[strings.ToLower(req.Email)]
	s.mu.Unlock()
	if exists {
		c.JSON(http.StatusConflict, response{Message: "email not available"})
		return
	}

	user := s.AddUser(req.Password, User{Email: req.Email, Username: req.Username})

	s.mu.Lock()
	token, err := s.signLocked(user)
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response{Message: "token error"})
		return
	}
	s.setCookie(c, token, int(sessionLength.Seconds()))
	c.JSON(http.StatusOK, response{Message: "user has been signed up and signed in", Data: user})
}

func (s *Server) signout(c *gin.Context) {
	s.setCookie(c, "", -1)
	c.JSON(http.StatusOK, response{Message: "user has been signed out"})
}

func (s *Server) csrf(c *gin.Context) {
	c.SetCookie("_csrf", "apitest", 3600, "/", "", false, false)
	c.JSON(http.StatusOK, response{Message: "csrf token has been set"})
}

// requireSession validates the session cookie, mirroring the backend's JWT middleware
func (s *Server) requireSession(c *gin.Context) {
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response{Message: "missing or malformed jwt"})
		return
	}

	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response{Message: "invalid or expired jwt"})
		return
	}

	c.Set("claims", token.Claims.(*Claims))
	c.Next()
}

func (s *Server) check(c *gin.Context) {
	claims := c.MustGet("claims").(*Claims)
	c.JSON(http.StatusOK, response{
		Message: "success",
		Data:    gin.H{"authenticated": true, "role": claims.Role},
	})
}

func (s *Server) currentUser(c *gin.Context) {
	claims := c.MustGet("claims").(*Claims)

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(claims.Email)]
	if !ok {
		c.JSON(http.StatusNotFound, response{Message: "user not found"})
		return
	}
	c.JSON(http.StatusOK, response{Message: "current user data retrieved", Data: acc.user})
}
