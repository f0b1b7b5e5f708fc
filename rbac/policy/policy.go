package policy

import (
	"strings"
)

const (
	RoleEmployer  = "employer"
	RoleApplicant = "applicant"

	ObjectApplication = "application"

	// ActionStatusPrefix prefixes the target status of a transition, e.g. status:accepted.
	ActionStatusPrefix = "status:"

	EffectAllow = "allow"
	EffectDeny  = "deny"
)

func SetStatus(status string) string {
	return ActionStatusPrefix + status
}

// StatusFromAction returns the status named by a status:<x> action.
func StatusFromAction(action string) (string, bool) {
	if !strings.HasPrefix(action, ActionStatusPrefix) {
		return "", false
	}
	return strings.TrimPrefix(action, ActionStatusPrefix), true
}

type ACL struct {
	Objects   string `yaml:"objects" json:"objects"`
	Actions   string `yaml:"actions" json:"actions"`
	Principal string `yaml:"principal,omitempty" json:"principal,omitempty"`
}

// GetPolicyDefinition expands the comma separated objects and actions into casbin rules.
// An action prefixed with ! is a deny.
func (acl ACL) GetPolicyDefinition() [][]string {
	var definitions [][]string
	for _, object := range strings.Split(acl.Objects, ",") {
		object = strings.TrimSpace(object)
		for _, action := range strings.Split(acl.Actions, ",") {
			action = strings.TrimSpace(action)
			if action == "" || object == "" {
				continue
			}
			if strings.HasPrefix(action, "!") {
				definitions = append(definitions, []string{acl.Principal, object, action[1:], EffectDeny})
			} else {
				definitions = append(definitions, []string{acl.Principal, object, action, EffectAllow})
			}
		}
	}
	return definitions
}

type Policy struct {
	Principal string   `yaml:"principal" json:"principal"`
	ACLs      []ACL    `yaml:"acl,omitempty" json:"acl"`
	Inherit   []string `yaml:"inherit,omitempty" json:"inherit"`
}

func (p Policy) GetPolicyDefintions() [][]string {
	var definitions [][]string
	for _, acl := range p.ACLs {
		if acl.Principal == "" {
			acl.Principal = p.Principal
		}
		definitions = append(definitions, acl.GetPolicyDefinition()...)
	}
	return definitions
}

func (p Policy) String() string {
	s := ""
	for _, policy := range p.GetPolicyDefintions() {
		if s != "" {
			s += "\n"
		}
		s += strings.Join(policy, ", ")
	}
	return s
}

type Permission struct {
	Subject string `json:"subject,omitempty"`
	Object  string `json:"object,omitempty"`
	Action  string `json:"action,omitempty"`
	Deny    bool   `json:"deny,omitempty"`
}

func NewPermission(perm []string) (p Permission) {
	size := len(perm)
	if size > 0 {
		p.Subject = perm[0]
	}
	if size > 1 {
		p.Object = perm[1]
	}
	if size > 2 {
		p.Action = perm[2]
	}
	if size > 3 {
		p.Deny = perm[3] == EffectDeny
	}
	return
}
