// Package directory is the read-only user directory and microservice
// health feed consumed by the exam client's login flow and its API.
package directory

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavelanni/proctor/internal/model"
)

//go:embed seed.yaml
var defaultSeed []byte

// ErrUnknownUser is returned when a user id is not in the directory.
var ErrUnknownUser = errors.New("unknown user")

// Seed is the on-disk directory format.
type Seed struct {
	Users    []model.User         `yaml:"users"`
	Services []model.Microservice `yaml:"services"`
}

// Directory holds users and the static service list in seed order.
type Directory struct {
	users    []model.User
	services []model.Microservice
}

// Default returns the embedded directory.
func Default() *Directory {
	d, err := Parse(defaultSeed)
	if err != nil {
		panic("directory: embedded seed: " + err.Error())
	}
	return d
}

// Load reads a YAML seed file, or returns Default when path is empty.
func Load(path string) (*Directory, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes a YAML seed.
func Parse(data []byte) (*Directory, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	seen := make(map[string]bool, len(seed.Users))
	for _, u := range seed.Users {
		if u.ID == "" {
			return nil, errors.New("user without id")
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("duplicate user id %q", u.ID)
		}
		seen[u.ID] = true
	}
	return &Directory{users: seed.Users, services: seed.Services}, nil
}

// Filter selects users. Zero fields match everything. Search matches a
// case-insensitive substring of name or email.
type Filter struct {
	Role   model.UserRole
	Status model.UserStatus
	Search string
}

func (f Filter) match(u model.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Status != "" && u.Status != f.Status {
		return false
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(u.Name), term) &&
			!strings.Contains(strings.ToLower(u.Email), term) {
			return false
		}
	}
	return true
}

// Users returns the users matching f in directory order.
func (d *Directory) Users(f Filter) []model.User {
	var out []model.User
	for _, u := range d.users {
		if f.match(u) {
			out = append(out, u)
		}
	}
	return out
}

// User returns the user with the given id.
func (d *Directory) User(id string) (model.User, error) {
	for _, u := range d.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: %s", ErrUnknownUser, id)
}

// Services returns the seed service records.
func (d *Directory) Services() []model.Microservice {
	return append([]model.Microservice(nil), d.services...)
}
