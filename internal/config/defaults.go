package config

import "github.com/doridoridoriand/regionwatch/internal/registry"

// DefaultGroups is the built-in registry used when no config file is given.
func DefaultGroups() []GroupConfig {
	return []GroupConfig{
		{
			Name:        "EU (Prague)",
			Coordinates: &registry.Coordinates{Lat: 50.0755, Lng: 14.4378},
			Endpoints: []EndpointConfig{
				{Address: "88.86.101.192/27", IsRange: true},
				{Address: "46.234.125.128/27", IsRange: true},
			},
		},
		{
			Name:        "Japan (Tokyo)",
			Coordinates: &registry.Coordinates{Lat: 35.6762, Lng: 139.6503},
			Endpoints: []EndpointConfig{
				{Address: "178.249.213.195"},
				{Address: "178.249.213.193"},
				{Address: "178.249.213.210"},
				{Address: "109.61.83.167"},
				{Address: "138.199.22.68"},
				{Address: "138.199.22.69"},
			},
		},
		{
			Name:        "USA (Denver)",
			Coordinates: &registry.Coordinates{Lat: 39.7392, Lng: -104.9903},
			Endpoints: []EndpointConfig{
				{Address: "121.127.44.20"},
				{Address: "121.127.44.79"},
				{Address: "121.127.44.104/30", IsRange: true},
			},
		},
		{
			Name:        "AXIS Dispatchers",
			Coordinates: &registry.Coordinates{Lat: 55.7047, Lng: 13.1910},
			Endpoints: []EndpointConfig{
				{Address: "52.51.189.141"},
				{Address: "18.200.145.9"},
				{Address: "54.73.167.187"},
				{Address: "3.24.72.55"},
				{Address: "18.215.224.182"},
				{Address: "195.60.68.120"},
				{Address: "195.60.68.121"},
			},
		},
	}
}
