package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Policy is a named limit for one class of endpoint.
type Policy struct {
	Name     string        `yaml:"-"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// Built-in endpoint classes. Override with RATELIMIT_<NAME>_REQUESTS and
// RATELIMIT_<NAME>_WINDOW_SEC, or the ratelimit section of the config file.
var (
	// AIPolicy covers endpoints that call the risk model.
	AIPolicy = Policy{Name: "ai", Requests: 10, Window: time.Minute}

	// IssuancePolicy covers credential minting.
	IssuancePolicy = Policy{Name: "issuance", Requests: 20, Window: time.Minute}

	// VerifyPolicy covers public credential reads.
	VerifyPolicy = Policy{Name: "verify", Requests: 100, Window: time.Minute}

	// DefaultPolicy covers everything else.
	DefaultPolicy = Policy{Name: "default", Requests: 50, Window: time.Minute}
)

// Policies is the set of limits the HTTP layer applies.
type Policies struct {
	AI       Policy `yaml:"ai"`
	Issuance Policy `yaml:"issuance"`
	Verify   Policy `yaml:"verify"`
	Default  Policy `yaml:"default"`
}

func DefaultPolicies() Policies {
	return Policies{
		AI:       AIPolicy,
		Issuance: IssuancePolicy,
		Verify:   VerifyPolicy,
		Default:  DefaultPolicy,
	}
}

// Merge returns ps with every non-zero field of o applied on top.
func (ps Policies) Merge(o Policies) Policies {
	ps.AI = ps.AI.merge(o.AI)
	ps.Issuance = ps.Issuance.merge(o.Issuance)
	ps.Verify = ps.Verify.merge(o.Verify)
	ps.Default = ps.Default.merge(o.Default)
	return ps
}

// FromEnv applies environment overrides to every policy.
func (ps Policies) FromEnv() Policies {
	ps.AI = ps.AI.FromEnv()
	ps.Issuance = ps.Issuance.FromEnv()
	ps.Verify = ps.Verify.FromEnv()
	ps.Default = ps.Default.FromEnv()
	return ps
}

func (p Policy) merge(o Policy) Policy {
	if o.Requests > 0 {
		p.Requests = o.Requests
	}
	if o.Window > 0 {
		p.Window = o.Window
	}
	return p
}

// FromEnv reads RATELIMIT_<NAME>_REQUESTS and RATELIMIT_<NAME>_WINDOW_SEC.
// Unparseable or non-positive values are ignored.
func (p Policy) FromEnv() Policy {
	prefix := "RATELIMIT_" + strings.ToUpper(p.Name)

	if val := os.Getenv(prefix + "_REQUESTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			p.Requests = n
		}
	}
	if val := os.Getenv(prefix + "_WINDOW_SEC"); val != "" {
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			p.Window = time.Duration(sec) * time.Second
		}
	}
	return p
}

// Key scopes an identity ("address:0xabc", "ip:10.0.0.1") to this policy so
// two endpoint classes never share a counter.
func (p Policy) Key(identity string) string {
	if identity == "" {
		return ""
	}
	return p.Name + ":" + identity
}
