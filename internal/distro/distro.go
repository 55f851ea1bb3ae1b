package distro

import (
	"fmt"
	"sort"
	"strings"
)

// Profile identifies one installable operating system image in Beaker
type Profile struct {
	Name    string `yaml:"name"`
	Variant string `yaml:"variant,omitempty"`
	Family  string `yaml:"family,omitempty"`
}

// profiles is the fixed table of distros beakergrab knows how to request.
// Keys are lower case.
var profiles = map[string]Profile{
	"centos7": {Name: "CentOS-7"},
	"rhel7":   {Name: "RHEL-7.2", Variant: "Server", Family: "RedHatEnterpriseLinux7"},
	"rhel8":   {Name: "RHEL-8.6.0", Variant: "BaseOS", Family: "RedHatEnterpriseLinux8"},
	"rhel9":   {Name: "RHEL-9.2.0", Variant: "BaseOS", Family: "RedHatEnterpriseLinux9"},
	"fedora":  {Name: "Fedora-38", Variant: "Server", Family: "Fedora38"},
}

// ConfigurationError is returned when a distro key is not in the table
type ConfigurationError struct {
	Key       string
	ValidKeys []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("unknown distro '%s'. Valid distros: %s", e.Key, strings.Join(e.ValidKeys, ", "))
}

// Keys returns the valid distro keys in sorted order
func Keys() []string {
	keys := make([]string, 0, len(profiles))
	for k := range profiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns a copy of the distro table
func All() map[string]Profile {
	out := make(map[string]Profile, len(profiles))
	for k, p := range profiles {
		out[k] = p
	}
	return out
}

// Lookup finds the profile for key, ignoring case and surrounding whitespace
func Lookup(key string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Profile{}, &ConfigurationError{Key: key, ValidKeys: Keys()}
	}
	return p, nil
}
