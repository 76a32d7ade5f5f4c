package models

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

type Rules []*Rule

// Rule associates a URL pattern with an endpoint name and, through the
// endpoint, a view function. Patterns use angle placeholders spanning a full
// path segment ("/users/<int:user_id>", "/files/<path:name>") or the router's
// native ":name"/"*name" form; both translate to the same bound path.
type Rule struct {
	// Pattern is the URL rule as given at registration.
	Pattern string `json:"pattern"`
	// Endpoint names the rule for reverse building and view lookup.
	Endpoint string `json:"endpoint"`
	// Methods this rule answers to. Empty means GET, and GET implies HEAD.
	Methods []string `json:"methods,omitempty"`
	// Host pins the rule to an exact request host. Requires host matching
	// to be enabled on the application.
	Host string `json:"host,omitempty"`
	// Subdomain pins the rule to <subdomain>.<SERVER_NAME>. Requires
	// subdomain matching and a configured server name.
	Subdomain string `json:"subdomain,omitempty"`
	// NoAutoOptions leaves the rule's path without the automatic OPTIONS
	// answer. Explicit OPTIONS methods are unaffected.
	NoAutoOptions bool `json:"no_auto_options,omitempty"`
	// HandlerName records the registered view function's name for
	// inspection and logs.
	HandlerName string `json:"handler_name,omitempty"`
}

// rule converters understood by pattern translation. Only "path" changes the
// binding; the rest are advisory since segment capture is untyped.
var ruleConverters = map[string]bool{
	"string": true,
	"int":    true,
	"float":  true,
	"uuid":   true,
	"any":    true,
	"path":   true,
}

// SetDefaults normalizes the method set the way the route decorator
// documents it: no methods means GET, and GET implies HEAD.
func (r *Rule) SetDefaults() {
	if len(r.Methods) == 0 {
		r.Methods = []string{http.MethodGet}
	}

	seen := make(map[string]bool, len(r.Methods)+1)
	norm := make([]string, 0, len(r.Methods)+1)
	for _, m := range r.Methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if seen[m] {
			continue
		}
		seen[m] = true
		norm = append(norm, m)
	}
	if seen[http.MethodGet] && !seen[http.MethodHead] {
		norm = append(norm, http.MethodHead)
	}
	r.Methods = norm
}

// Validate validates all field values, returning the first error, if any.
func (r *Rule) Validate() error {
	if _, err := r.GinPath(); err != nil {
		return err
	}

	if r.Endpoint == "" {
		return ErrRulesMissingEndpoint
	}

	for _, m := range r.Methods {
		if m == "" || strings.ContainsAny(m, " \t/") {
			return ErrRulesInvalidMethod
		}
	}
	return nil
}

// GinPath translates Pattern into the path bound on the router. This is a
// lexical, registration-time mapping; matching stays with the router.
func (r *Rule) GinPath() (string, error) {
	if r.Pattern == "" {
		return "", ErrRulesMissingPattern
	}
	if !strings.HasPrefix(r.Pattern, "/") {
		return "", ErrRulesInvalidPattern
	}

	segs := strings.Split(r.Pattern[1:], "/")
	seen := make(map[string]bool)
	out := make([]string, len(segs))
	for i, seg := range segs {
		last := i == len(segs)-1
		switch {
		case seg == "":
			out[i] = seg
		case seg[0] == ':' || seg[0] == '*':
			name := seg[1:]
			if name == "" {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Missing parameter name in rule segment %q", seg))
			}
			if seen[name] {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Duplicate rule parameter %q", name))
			}
			if seg[0] == '*' && !last {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Path parameter %q must be the final rule segment", name))
			}
			seen[name] = true
			out[i] = seg
		case seg[0] == '<' && seg[len(seg)-1] == '>':
			conv, name := "string", seg[1:len(seg)-1]
			if j := strings.IndexByte(name, ':'); j >= 0 {
				conv, name = name[:j], name[j+1:]
			}
			if name == "" || strings.ContainsAny(name, "<>:") {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Invalid parameter name in rule segment %q", seg))
			}
			if !ruleConverters[conv] {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Unknown rule converter %q", conv))
			}
			if seen[name] {
				return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Duplicate rule parameter %q", name))
			}
			seen[name] = true
			if conv == "path" {
				if !last {
					return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Path parameter %q must be the final rule segment", name))
				}
				out[i] = "*" + name
			} else {
				out[i] = ":" + name
			}
		case strings.ContainsAny(seg, "<>"):
			return "", NewAPIError(http.StatusBadRequest, fmt.Errorf("Rule parameter must span a full path segment: %q", seg))
		default:
			out[i] = seg
		}
	}
	return "/" + strings.Join(out, "/"), nil
}

// BuildURL substitutes params into the rule's pattern, reversing what the
// router captures. Params that are not part of the pattern are appended as
// query arguments in sorted order.
func (r *Rule) BuildURL(params map[string]string) (string, error) {
	gp, err := r.GinPath()
	if err != nil {
		return "", err
	}

	used := make(map[string]bool, len(params))
	segs := strings.Split(gp[1:], "/")
	for i, seg := range segs {
		if seg == "" || (seg[0] != ':' && seg[0] != '*') {
			continue
		}
		name := seg[1:]
		v, ok := params[name]
		if !ok {
			return "", NewAPIError(http.StatusInternalServerError,
				fmt.Errorf("Missing value for parameter %q building URL for endpoint %q", name, r.Endpoint))
		}
		used[name] = true
		if seg[0] == ':' {
			segs[i] = url.PathEscape(v)
		} else {
			// path parameters keep their slashes
			segs[i] = strings.TrimPrefix(v, "/")
		}
	}

	u := "/" + strings.Join(segs, "/")
	var extra []string
	for k := range params {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		q := url.Values{}
		for _, k := range extra {
			q.Set(k, params[k])
		}
		u += "?" + q.Encode()
	}
	return u, nil
}

// Params returns the parameter names the pattern captures, in order.
// Invalid patterns have no parameters.
func (r *Rule) Params() []string {
	gp, err := r.GinPath()
	if err != nil {
		return nil
	}
	var names []string
	for _, seg := range strings.Split(gp[1:], "/") {
		if seg != "" && (seg[0] == ':' || seg[0] == '*') {
			names = append(names, seg[1:])
		}
	}
	return names
}

// HasMethod reports whether the rule answers to method, after defaults.
func (r *Rule) HasMethod(method string) bool {
	for _, m := range r.Methods {
		if m == method {
			return true
		}
	}
	return false
}

func (r *Rule) Clone() *Rule {
	clone := new(Rule)
	*clone = *r // shallow copy

	if r.Methods != nil {
		clone.Methods = make([]string, len(r.Methods))
		copy(clone.Methods, r.Methods)
	}
	return clone
}

func (r1 *Rule) Equals(r2 *Rule) bool {
	// start off equal, check equivalence of each field.
	eq := true
	eq = eq && r1.Pattern == r2.Pattern
	eq = eq && r1.Endpoint == r2.Endpoint
	eq = eq && r1.Host == r2.Host
	eq = eq && r1.Subdomain == r2.Subdomain
	eq = eq && r1.NoAutoOptions == r2.NoAutoOptions
	eq = eq && r1.HandlerName == r2.HandlerName
	eq = eq && methodsEqual(r1.Methods, r2.Methods)
	return eq
}

// methodsEqual compares method lists as sets.
func methodsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, m := range a {
		set[m] = true
	}
	for _, m := range b {
		if !set[m] {
			return false
		}
	}
	return true
}

func (r *Rule) String() string {
	return fmt.Sprintf("%s %s -> %s", strings.Join(r.Methods, ","), r.Pattern, r.Endpoint)
}
