package perms

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BenderTales/tales-chat-api/internal/chat"
)

// Static is a configuration-driven permission backend keyed by display
// name: an operator list plus per-name permission grants. The grant "*"
// matches every permission key.
type Static struct {
	ops    map[string]bool
	grants map[string]map[string]bool
}

type fileFormat struct {
	Operators   []string            `yaml:"operators"`
	Permissions map[string][]string `yaml:"permissions"`
}

func New(operators []string, grants map[string][]string) *Static {
	s := &Static{
		ops:    make(map[string]bool, len(operators)),
		grants: make(map[string]map[string]bool, len(grants)),
	}
	for _, name := range operators {
		s.ops[name] = true
	}
	for name, keys := range grants {
		set := make(map[string]bool, len(keys))
		for _, k := range keys {
			set[k] = true
		}
		s.grants[name] = set
	}
	return s
}

// LoadFile reads a YAML permissions file. A missing path yields an empty
// backend (nobody elevated, no grants).
func LoadFile(path string) (*Static, error) {
	if path == "" {
		return New(nil, nil), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(nil, nil), nil
		}
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse permissions file: %w", err)
	}
	return New(f.Operators, f.Permissions), nil
}

func (s *Static) HasPermission(p chat.Participant, key string) bool {
	set := s.grants[p.Name()]
	return set[key] || set["*"]
}

func (s *Static) IsElevated(p chat.Participant) bool {
	return s.ops[p.Name()]
}

var _ chat.Permissions = (*Static)(nil)
