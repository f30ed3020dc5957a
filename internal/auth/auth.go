package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/iurnickita/bistrobonus/internal/auth/config"
	"github.com/iurnickita/bistrobonus/internal/store"
	"github.com/iurnickita/bistrobonus/internal/token"
)

// Auth - регистрация и вход персонала (админка, кухонный экран).
// Клиентские операции лояльности токена не требуют
type Auth interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderUserCodeKey = "userCode"
	cookieUserToken   = "bistrobonusUserToken"
)

type auth struct {
	cfg   config.Config
	store store.Store
}

func NewAuth(cfg config.Config, store store.Store) Auth {
	return &auth{
		cfg:   cfg,
		store: store,
	}
}

type credentialsJSONRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a *auth) Register(w http.ResponseWriter, r *http.Request) {
	var creds credentialsJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if creds.Login == "" || creds.Password == "" {
		http.Error(w, "login and password are required", http.StatusBadRequest)
		return
	}

	userCode, err := a.store.AuthRegister(r.Context(), creds.Login, hashPassword(creds.Password))
	if err != nil {
		switch err {
		case store.ErrAlreadyExists:
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	a.setTokenCookie(w, userCode)
}

func (a *auth) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentialsJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if creds.Login == "" || creds.Password == "" {
		http.Error(w, "login and password are required", http.StatusBadRequest)
		return
	}

	userCode, err := a.store.AuthLogin(r.Context(), creds.Login, hashPassword(creds.Password))
	if err != nil {
		switch err {
		case store.ErrNoRows:
			http.Error(w, "wrong login or password", http.StatusUnauthorized)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	a.setTokenCookie(w, userCode)
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение id пользователя
		userCode, err := a.getUserCode(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// записываем
		r.Header.Set(HeaderUserCodeKey, userCode)

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) setTokenCookie(w http.ResponseWriter, userCode string) {
	tokenString, err := token.BuildJWTString(userCode, a.cfg.Secret)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:  cookieUserToken,
		Value: tokenString,
		Path:  "/",
	})
	w.WriteHeader(http.StatusOK)
}

func (a *auth) getUserCode(r *http.Request) (string, error) {
	// куки пользователя
	tokenCookie, err := r.Cookie(cookieUserToken)
	if err != nil {
		return "", err
	}
	return token.GetUserCode(tokenCookie.Value, a.cfg.Secret)
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
