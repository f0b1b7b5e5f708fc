package rbac

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/flanksource/commons/properties"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/flanksource/gigs/context"
	"github.com/flanksource/gigs/models"
	"github.com/flanksource/gigs/rbac/policy"
)

//go:embed policies.yaml
var defaultPolicies string

//go:embed model.ini
var DefaultModel string

// Actor is the relationship of a caller to an application.
type Actor string

const (
	ActorEmployer  Actor = policy.RoleEmployer
	ActorApplicant Actor = policy.RoleApplicant
)

// Enforcer decides which status transitions an actor may perform.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

var (
	defaultEnforcer     *Enforcer
	defaultEnforcerErr  error
	defaultEnforcerOnce sync.Once
)

// Default returns the enforcer built from the embedded policies.
func Default() (*Enforcer, error) {
	defaultEnforcerOnce.Do(func() {
		var policies []policy.Policy
		policies, defaultEnforcerErr = LoadPolicies(defaultPolicies)
		if defaultEnforcerErr != nil {
			return
		}
		defaultEnforcer, defaultEnforcerErr = NewEnforcer(policies...)
	})
	return defaultEnforcer, defaultEnforcerErr
}

func LoadPolicies(content string) ([]policy.Policy, error) {
	var policies []policy.Policy
	if err := yaml.Unmarshal([]byte(content), &policies); err != nil {
		return nil, fmt.Errorf("unable to load policies: %v", err)
	}
	return policies, nil
}

func NewEnforcer(policies ...policy.Policy) (*Enforcer, error) {
	m, err := model.NewModelFromString(DefaultModel)
	if err != nil {
		return nil, fmt.Errorf("error creating rbac model: %v", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("error creating rbac enforcer: %v", err)
	}

	// Adding policies in a loop keeps the error attributable to a single rule
	for _, p := range policies {
		for _, inherited := range p.Inherit {
			if _, err := enforcer.AddGroupingPolicy(p.Principal, inherited); err != nil {
				return nil, fmt.Errorf("error adding group policy for %s -> %s: %v", p.Principal, inherited, err)
			}
		}
		for _, acl := range p.GetPolicyDefintions() {
			if _, err := enforcer.AddPolicy(acl); err != nil {
				return nil, fmt.Errorf("error adding rbac policy %s: %v", p, err)
			}
		}
	}

	return &Enforcer{enforcer: enforcer}, nil
}

// CanTransition reports whether actor may set an application's status to status.
func (e *Enforcer) CanTransition(ctx context.Context, actor Actor, status models.ApplicationStatus) bool {
	subject, object, action := string(actor), policy.ObjectApplication, policy.SetStatus(string(status))

	if properties.On(false, "casbin.explain") {
		allowed, rules, err := e.enforcer.EnforceEx(subject, object, action)
		if err != nil {
			ctx.Errorf("failed run explained enforcer for actor=%s, action=%s: %v", subject, action, err)
			return false
		}
		ctx.Debugf("[%s] %s:%s -> %v (%s)", subject, object, action, allowed, strings.Join(rules, "\n\t"))
		return allowed
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		ctx.Errorf("failed to run enforcer for actor=%s, action=%s: %v", subject, action, err)
		return false
	}

	if ctx.IsTrace() {
		ctx.Tracef("rbac: %s %s:%s = %v", subject, object, action, allowed)
	}

	return allowed
}

// AllowedStatuses lists the statuses actor may set, sorted by name.
func (e *Enforcer) AllowedStatuses(actor Actor) ([]models.ApplicationStatus, error) {
	perms, err := e.enforcer.GetImplicitPermissionsForUser(string(actor))
	if err != nil {
		return nil, err
	}

	var allowed, denied []string
	for _, perm := range perms {
		p := policy.NewPermission(perm)
		if p.Object != policy.ObjectApplication && p.Object != "*" {
			continue
		}
		status, ok := policy.StatusFromAction(p.Action)
		if !ok {
			continue
		}
		if p.Deny {
			denied = append(denied, status)
		} else {
			allowed = append(allowed, status)
		}
	}

	statuses := lo.Uniq(lo.Without(allowed, denied...))
	sort.Strings(statuses)
	return lo.Map(statuses, func(s string, _ int) models.ApplicationStatus {
		return models.ApplicationStatus(s)
	}), nil
}
