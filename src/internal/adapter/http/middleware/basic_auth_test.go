package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func basicAuthRequest(id, key string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(id+":"+key)))
	return req
}

func TestBasicAuth_AllowsValidCredentials(t *testing.T) {
	mw := BasicAuth(ChannelCredentials{ID: "LedgerApp", Key: "LedgerKey001"})

	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, basicAuthRequest("LedgerApp", "LedgerKey001"))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestBasicAuth_RejectsInvalidCredentials(t *testing.T) {
	mw := BasicAuth(ChannelCredentials{ID: "LedgerApp", Key: "LedgerKey001"})

	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, basicAuthRequest("LedgerApp", "WrongKey"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBasicAuth_VerifiesBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("LedgerKey001"), bcrypt.MinCost)
	assert.NoError(t, err)
	mw := BasicAuth(ChannelCredentials{ID: "LedgerApp", Key: "ignored", KeyHash: string(hash)})

	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, basicAuthRequest("LedgerApp", "LedgerKey001"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, basicAuthRequest("LedgerApp", "ignored"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBasicAuth_MissingConfiguration(t *testing.T) {
	mw := BasicAuth(ChannelCredentials{ID: "LedgerApp"})

	rr := httptest.NewRecorder()
	mw(okHandler()).ServeHTTP(rr, basicAuthRequest("LedgerApp", "LedgerKey001"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
