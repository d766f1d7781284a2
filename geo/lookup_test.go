package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "success",
			"countryCode": "US",
			"city": "Mountain View",
			"regionName": "California",
			"isp": "Google LLC",
			"lat": 37.4056,
			"lon": -122.0775
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	g := c.Lookup(context.Background(), "8.8.8.8")

	require.NotNil(t, g)
	assert.Equal(t, "US", g.Country)
	assert.Equal(t, "Mountain View", g.City)
	assert.Equal(t, "California", g.Region)
	assert.Equal(t, "Google LLC", g.ISP)
	assert.InDelta(t, 37.4056, g.Lat, 0.0001)
	assert.InDelta(t, -122.0775, g.Lon, 0.0001)
}

func TestLookupLoopbackShortCircuits(t *testing.T) {
	// No server at all; loopback must never hit the network.
	c := NewClient("http://127.0.0.1:1", time.Second)

	for _, ip := range []string{"127.0.0.1", "::1"} {
		g := c.Lookup(context.Background(), ip)
		require.NotNil(t, g, "ip %s", ip)
		assert.Equal(t, "Local", g.Country)
		assert.Equal(t, "Localhost", g.City)
	}
}

func TestLookupEmptyIP(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	assert.Nil(t, c.Lookup(context.Background(), ""))
}

func TestLookupFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "fail", "message": "reserved range"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.Nil(t, c.Lookup(context.Background(), "10.0.0.1"))
}

func TestLookupNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.Nil(t, c.Lookup(context.Background(), "8.8.8.8"))
}

func TestLookupMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	assert.Nil(t, c.Lookup(context.Background(), "8.8.8.8"))
}

func TestLookupTransportErrorDegradesToNil(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	assert.Nil(t, c.Lookup(context.Background(), "8.8.8.8"))
}

func TestLookupHonorsContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL, 5*time.Second)
	assert.Nil(t, c.Lookup(ctx, "8.8.8.8"))
}
