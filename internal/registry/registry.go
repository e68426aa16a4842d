// Package registry holds the static set of tracked addresses and the
// contract-to-collection-name mapping used throughout a run.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/estensen/mint-profit-pipeline/internal/models"
)

var ErrInvalidRegistry = errors.New("invalid registry")

// Role is the part an address plays for the operator.
type Role int

const (
	RoleUnknown Role = iota
	RoleBot
	RoleOther
)

func (r Role) String() string {
	switch r {
	case RoleBot:
		return "bot"
	case RoleOther:
		return "other"
	default:
		return "unknown"
	}
}

// Collection pairs an NFT contract with its display name.
type Collection struct {
	Contract string
	Name     string
}

// Registry is immutable once built by New.
type Registry struct {
	bots        []string
	others      []string
	roles       map[string]Role
	collections map[string]string
}

// New validates the inputs and builds a Registry. Display names must be
// unique because sales are joined to mints by name.
func New(bots, others []string, collections map[string]string) (*Registry, error) {
	r := &Registry{
		bots:        append([]string(nil), bots...),
		others:      append([]string(nil), others...),
		roles:       make(map[string]Role, len(bots)+len(others)),
		collections: make(map[string]string, len(collections)),
	}

	for _, addr := range bots {
		if err := r.addRole(addr, RoleBot); err != nil {
			return nil, err
		}
	}
	for _, addr := range others {
		if err := r.addRole(addr, RoleOther); err != nil {
			return nil, err
		}
	}

	names := make(map[string]string, len(collections))
	for contract, name := range collections {
		if contract == "" || name == "" {
			return nil, fmt.Errorf("%w: empty collection contract or name (%q -> %q)", ErrInvalidRegistry, contract, name)
		}
		if prev, ok := names[name]; ok {
			return nil, fmt.Errorf("%w: collection name %q registered for both %s and %s", ErrInvalidRegistry, name, prev, contract)
		}
		names[name] = contract
		r.collections[contract] = name
	}

	return r, nil
}

func (r *Registry) addRole(addr string, role Role) error {
	if addr == "" {
		return fmt.Errorf("%w: empty %s address", ErrInvalidRegistry, role)
	}
	if prev, ok := r.roles[addr]; ok {
		return fmt.Errorf("%w: address %s listed as %s and %s", ErrInvalidRegistry, addr, prev, role)
	}
	r.roles[addr] = role
	return nil
}

func (r *Registry) BotAddresses() []string {
	return append([]string(nil), r.bots...)
}

func (r *Registry) OtherAddresses() []string {
	return append([]string(nil), r.others...)
}

// AllAddresses returns the other addresses followed by the bots.
func (r *Registry) AllAddresses() []string {
	all := make([]string, 0, len(r.others)+len(r.bots))
	all = append(all, r.others...)
	return append(all, r.bots...)
}

func (r *Registry) Role(addr string) Role {
	return r.roles[addr]
}

func (r *Registry) IsBot(addr string) bool {
	return r.roles[addr] == RoleBot
}

// CollectionName resolves a contract address to its display name.
func (r *Registry) CollectionName(contract string) (string, error) {
	name, ok := r.collections[contract]
	if !ok {
		return "", &models.LookupError{Contract: contract}
	}
	return name, nil
}

// Collections returns every registered collection sorted by name.
func (r *Registry) Collections() []Collection {
	out := make([]Collection, 0, len(r.collections))
	for contract, name := range r.collections {
		out = append(out, Collection{Contract: contract, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
