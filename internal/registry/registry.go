package registry

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

var (
	ErrDuplicateAddress = errors.New("address registered in more than one group")
	ErrEmptyAddress     = errors.New("endpoint address is empty")
	ErrEmptyGroupName   = errors.New("group name is empty")
	ErrInvalidRange     = errors.New("range is not a valid CIDR prefix")
)

// Endpoint is one monitored address, either a single host or a CIDR range.
type Endpoint struct {
	Address string
	IsRange bool
	Label   string
}

// Coordinates locate a group on the map.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Group is a named region holding one or more endpoints.
type Group struct {
	Name        string
	Coordinates *Coordinates
	Endpoints   []Endpoint
}

// Registry is the read-only set of groups being monitored.
type Registry struct {
	groups  []Group
	byAddr  map[string]int
	ordered []Endpoint
}

// New validates groups and builds a registry. Groups keep their given order.
func New(groups []Group) (*Registry, error) {
	r := &Registry{
		groups: make([]Group, 0, len(groups)),
		byAddr: make(map[string]int),
	}
	for gi, g := range groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return nil, fmt.Errorf("group %d: %w", gi, ErrEmptyGroupName)
		}
		clone := Group{Name: name, Endpoints: make([]Endpoint, 0, len(g.Endpoints))}
		if g.Coordinates != nil {
			c := *g.Coordinates
			clone.Coordinates = &c
		}
		for _, ep := range g.Endpoints {
			addr := strings.TrimSpace(ep.Address)
			if addr == "" {
				return nil, fmt.Errorf("group %q: %w", name, ErrEmptyAddress)
			}
			if prev, ok := r.byAddr[addr]; ok {
				return nil, fmt.Errorf("%s in %q and %q: %w", addr, r.groups[prev].Name, name, ErrDuplicateAddress)
			}
			ep.Address = addr
			if strings.Contains(addr, "/") {
				ep.IsRange = true
			}
			if ep.IsRange {
				if _, err := netip.ParsePrefix(addr); err != nil {
					return nil, fmt.Errorf("group %q: %s: %w", name, addr, ErrInvalidRange)
				}
			}
			r.byAddr[addr] = len(r.groups)
			clone.Endpoints = append(clone.Endpoints, ep)
			r.ordered = append(r.ordered, ep)
		}
		r.groups = append(r.groups, clone)
	}
	return r, nil
}

// Groups returns a copy of the groups in registry order.
func (r *Registry) Groups() []Group {
	out := make([]Group, len(r.groups))
	for i, g := range r.groups {
		out[i] = copyGroup(g)
	}
	return out
}

// Endpoints returns every endpoint across all groups in registry order.
func (r *Registry) Endpoints() []Endpoint {
	return append([]Endpoint(nil), r.ordered...)
}

// GroupOf returns the group owning address.
func (r *Registry) GroupOf(address string) (Group, bool) {
	idx, ok := r.byAddr[address]
	if !ok {
		return Group{}, false
	}
	return copyGroup(r.groups[idx]), true
}

// Len reports the total number of endpoints.
func (r *Registry) Len() int {
	return len(r.ordered)
}

func copyGroup(g Group) Group {
	clone := g
	clone.Endpoints = append([]Endpoint(nil), g.Endpoints...)
	if g.Coordinates != nil {
		c := *g.Coordinates
		clone.Coordinates = &c
	}
	return clone
}

// ProbeAddress returns the host to probe for ep. Ranges are probed at their
// first usable host; /31 and /32 (and IPv6 /127, /128) use the base address.
func ProbeAddress(ep Endpoint) (string, error) {
	if !ep.IsRange {
		return ep.Address, nil
	}
	prefix, err := netip.ParsePrefix(ep.Address)
	if err != nil {
		return "", fmt.Errorf("parse range %q: %w", ep.Address, err)
	}
	prefix = prefix.Masked()
	base := prefix.Addr()
	if prefix.Bits() >= base.BitLen()-1 {
		return base.String(), nil
	}
	return base.Next().String(), nil
}
