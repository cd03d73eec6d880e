package registry

import (
	"errors"
	"testing"
)

func TestNewKeepsOrderAndFlagsRanges(t *testing.T) {
	reg, err := New([]Group{
		{
			Name:        " tokyo ",
			Coordinates: &Coordinates{Lat: 35.6762, Lng: 139.6503},
			Endpoints:   []Endpoint{{Address: " 192.0.2.1 "}, {Address: "198.51.100.0/30"}},
		},
		{Name: "denver", Endpoints: []Endpoint{{Address: "203.0.113.7", Label: "edge"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 3 {
		t.Fatalf("expected 3 endpoints, got %d", reg.Len())
	}

	groups := reg.Groups()
	if groups[0].Name != "tokyo" || groups[1].Name != "denver" {
		t.Fatalf("unexpected group order: %q, %q", groups[0].Name, groups[1].Name)
	}
	eps := reg.Endpoints()
	if eps[0].Address != "192.0.2.1" || eps[0].IsRange {
		t.Fatalf("unexpected first endpoint: %+v", eps[0])
	}
	if !eps[1].IsRange {
		t.Fatalf("expected CIDR address to be a range: %+v", eps[1])
	}
	if eps[2].Label != "edge" {
		t.Fatalf("expected label to survive, got %+v", eps[2])
	}

	g, ok := reg.GroupOf("198.51.100.0/30")
	if !ok || g.Name != "tokyo" {
		t.Fatalf("expected tokyo for range, got %q (ok=%v)", g.Name, ok)
	}
	if _, ok := reg.GroupOf("192.0.2.99"); ok {
		t.Fatalf("expected unknown address to be missing")
	}
}

func TestNewCopiesInput(t *testing.T) {
	coords := &Coordinates{Lat: 1, Lng: 2}
	input := []Group{{Name: "a", Coordinates: coords, Endpoints: []Endpoint{{Address: "192.0.2.1"}}}}
	reg, err := New(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	coords.Lat = 50
	input[0].Endpoints[0].Address = "192.0.2.200"

	g := reg.Groups()[0]
	if g.Coordinates.Lat != 1 || g.Endpoints[0].Address != "192.0.2.1" {
		t.Fatalf("registry shares memory with its input: %+v", g)
	}

	g.Endpoints[0].Address = "mutated"
	if reg.Groups()[0].Endpoints[0].Address != "192.0.2.1" {
		t.Fatalf("Groups returned shared memory")
	}
}

func TestNewRejectsInvalidGroups(t *testing.T) {
	cases := []struct {
		name   string
		groups []Group
		want   error
	}{
		{"empty name", []Group{{Name: "  "}}, ErrEmptyGroupName},
		{"empty address", []Group{{Name: "a", Endpoints: []Endpoint{{Address: " "}}}}, ErrEmptyAddress},
		{"duplicate", []Group{
			{Name: "a", Endpoints: []Endpoint{{Address: "192.0.2.1"}}},
			{Name: "b", Endpoints: []Endpoint{{Address: "192.0.2.1"}}},
		}, ErrDuplicateAddress},
		{"bad range", []Group{{Name: "a", Endpoints: []Endpoint{{Address: "192.0.2.1", IsRange: true}}}}, ErrInvalidRange},
		{"bad prefix", []Group{{Name: "a", Endpoints: []Endpoint{{Address: "192.0.2.0/33"}}}}, ErrInvalidRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.groups); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestProbeAddress(t *testing.T) {
	cases := []struct {
		ep   Endpoint
		want string
	}{
		{Endpoint{Address: "192.0.2.1"}, "192.0.2.1"},
		{Endpoint{Address: "88.86.101.192/27", IsRange: true}, "88.86.101.193"},
		{Endpoint{Address: "121.127.44.106/30", IsRange: true}, "121.127.44.105"},
		{Endpoint{Address: "192.0.2.10/31", IsRange: true}, "192.0.2.10"},
		{Endpoint{Address: "192.0.2.10/32", IsRange: true}, "192.0.2.10"},
		{Endpoint{Address: "2001:db8::/64", IsRange: true}, "2001:db8::1"},
		{Endpoint{Address: "2001:db8::5/128", IsRange: true}, "2001:db8::5"},
	}
	for _, tc := range cases {
		got, err := ProbeAddress(tc.ep)
		if err != nil {
			t.Fatalf("ProbeAddress(%q): unexpected error %v", tc.ep.Address, err)
		}
		if got != tc.want {
			t.Fatalf("ProbeAddress(%q): expected %s, got %s", tc.ep.Address, tc.want, got)
		}
	}

	if _, err := ProbeAddress(Endpoint{Address: "not-a-prefix", IsRange: true}); err == nil {
		t.Fatalf("expected error for invalid range")
	}
}
