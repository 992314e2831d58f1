package client

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientNew(t *testing.T) {
	c := New("https://example.com/")
	assert.Equal(t, "https://example.com", c.BaseURL)
	assert.NotNil(t, c.HTTPClient)
	assert.Empty(t, c.Token)
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"message not found"}`)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Message(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.Contains(t, err.Error(), "message not found")
}

func TestAPIErrorPlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Counts(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"invalid credentials"}`)
				return
			}
			_, _ = io.WriteString(w, `{"success":true,"token":"tok"}`)
		case "/api/admin/reports":
			gotAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `[]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := New(ts.URL)
	err := c.Login(context.Background(), "admin", "wrong")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Empty(t, c.Token)

	require.NoError(t, c.Login(context.Background(), "admin", "pw"))
	assert.Equal(t, "tok", c.Token)

	reported, err := c.Reports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reported)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestPostMessageWithImageUsesMultipart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mt != "multipart/form-data" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		assert.Equal(t, "cat.gif", header.Filename)
		assert.Equal(t, "GIF89a", string(data))
		assert.Equal(t, "hello", r.FormValue("text"))

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":5,"text":"hello","category":"thoughts","likes":0}`)
	}))
	defer ts.Close()

	msg, err := New(ts.URL).PostMessage(context.Background(), Post{
		Text:      "hello",
		Image:     strings.NewReader("GIF89a"),
		ImageName: "cat.gif",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), msg.ID)
	assert.Equal(t, "hello", msg.Text)
}
