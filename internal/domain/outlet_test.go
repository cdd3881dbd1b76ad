package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

func f(v float64) *float64 { return &v }

func TestOutlet_HasValidCoordinates(t *testing.T) {
	tests := []struct {
		name   string
		outlet domain.Outlet
		want   bool
	}{
		{"valid", domain.Outlet{Latitude: f(40.7128), Longitude: f(-74.006)}, true},
		{"boundary lat", domain.Outlet{Latitude: f(90), Longitude: f(0.1)}, true},
		{"boundary lon", domain.Outlet{Latitude: f(0.1), Longitude: f(-180)}, true},
		{"nil latitude", domain.Outlet{Longitude: f(10)}, false},
		{"nil longitude", domain.Outlet{Latitude: f(10)}, false},
		{"both nil", domain.Outlet{}, false},
		{"zero zero placeholder", domain.Outlet{Latitude: f(0), Longitude: f(0)}, false},
		{"latitude out of range", domain.Outlet{Latitude: f(200), Longitude: f(10)}, false},
		{"latitude below range", domain.Outlet{Latitude: f(-90.5), Longitude: f(10)}, false},
		{"longitude out of range", domain.Outlet{Latitude: f(10), Longitude: f(181)}, false},
		{"zero lat only", domain.Outlet{Latitude: f(0), Longitude: f(12.5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.outlet.HasValidCoordinates())
		})
	}
}

func TestValidOutlets(t *testing.T) {
	outlets := []domain.Outlet{
		{ID: 1, Latitude: f(52.52), Longitude: f(13.405)},
		{ID: 2, Latitude: f(200), Longitude: f(10)},
		{ID: 3, Latitude: f(0), Longitude: f(0)},
		{ID: 4, Latitude: f(-33.87), Longitude: f(151.21)},
		{ID: 5},
	}

	valid := domain.ValidOutlets(outlets)

	ids := make([]int64, 0, len(valid))
	for _, o := range valid {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{1, 4}, ids)
}

func TestValidOutlets_AllInvalid(t *testing.T) {
	outlets := []domain.Outlet{
		{ID: 1, Latitude: f(200), Longitude: f(10)},
	}
	assert.Empty(t, domain.ValidOutlets(outlets))
}
