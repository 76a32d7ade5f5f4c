package app

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flagonhq/flagon/common"
	"github.com/flagonhq/flagon/models"
)

// RouteOption mutates a rule before it is validated and bound.
type RouteOption func(*models.Rule)

// Methods sets the methods the rule answers to. The default is GET, and GET
// implies HEAD.
func Methods(methods ...string) RouteOption {
	return func(r *models.Rule) { r.Methods = methods }
}

// Endpoint names the rule for reverse building, overriding the view
// function's name.
func Endpoint(name string) RouteOption {
	return func(r *models.Rule) { r.Endpoint = name }
}

// OnHost pins the rule to an exact request host. Requires host matching.
func OnHost(host string) RouteOption {
	return func(r *models.Rule) { r.Host = host }
}

// OnSubdomain pins the rule to <sub>.<server name>. Requires subdomain
// matching and a server name.
func OnSubdomain(sub string) RouteOption {
	return func(r *models.Rule) { r.Subdomain = sub }
}

// NoAutoOptions leaves the rule's path without the automatic OPTIONS answer,
// so OPTIONS reports method not allowed unless a rule binds it explicitly.
func NoAutoOptions() RouteOption {
	return func(r *models.Rule) { r.NoAutoOptions = true }
}

// binding is what a (router path, method) pair resolves to. auto marks the
// OPTIONS handler we bind on every path that has no explicit one.
type binding struct {
	rule *models.Rule
	auto bool
}

// Route returns a decorator that registers the view under pattern and hands
// the view back unchanged, so a handler stays usable as a plain function:
//
//	hello := a.Route("/hello")(func(w http.ResponseWriter, r *http.Request) {
//		fmt.Fprintln(w, "hello")
//	})
//
// A decorator cannot surface a registration error, so failures are logged,
// collected on Err and re-checked at Run.
func (a *App) Route(pattern string, opts ...RouteOption) func(view http.HandlerFunc) http.HandlerFunc {
	return func(view http.HandlerFunc) http.HandlerFunc {
		if err := a.AddURLRule(pattern, "", view, opts...); err != nil {
			a.recordErr(err)
		}
		return view
	}
}

// AddURLRule registers view under pattern the way Route does, with the error
// in hand. endpoint may be empty to take the view function's name. Multiple
// rules may share an endpoint as long as they share the view.
func (a *App) AddURLRule(pattern, endpoint string, view http.Handler, opts ...RouteOption) error {
	if view == nil {
		return models.ErrRulesMissingViewFunc
	}

	rule := &models.Rule{Pattern: pattern, Endpoint: endpoint}
	for _, opt := range opts {
		opt(rule)
	}

	rule.HandlerName = handlerName(view)
	if rule.Endpoint == "" {
		rule.Endpoint = rule.HandlerName
		if rule.Endpoint == "" {
			return models.ErrRulesMissingEndpoint
		}
	}

	ctx := context.Background()
	if err := a.ruleListeners.BeforeRuleAdd(ctx, rule); err != nil {
		return err
	}

	rule.SetDefaults()
	if err := rule.Validate(); err != nil {
		return err
	}

	if rule.Host != "" && !a.hostMatching {
		return models.ErrHostMatchingDisabled
	}
	if rule.Subdomain != "" {
		if !a.subdomainMatching {
			return models.ErrSubdomainMatchingDisabled
		}
		if a.serverName == "" {
			return models.ErrServerNameRequired
		}
	}

	ginPath, err := rule.GinPath()
	if err != nil {
		return err
	}

	if err := a.bind(rule, ginPath, view); err != nil {
		return err
	}

	return a.ruleListeners.AfterRuleAdd(ctx, rule)
}

func (a *App) bind(rule *models.Rule, ginPath string, view http.Handler) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frozen {
		return models.ErrAppFrozen
	}

	if old, ok := a.views[rule.Endpoint]; ok && !sameView(old, view) {
		return models.NewAPIError(models.ErrEndpointExists.Code(),
			fmt.Errorf("%v: %s", models.ErrEndpointExists, rule.Endpoint))
	}

	for _, m := range rule.Methods {
		if b, ok := a.bound[ginPath][m]; ok && !(m == http.MethodOptions && b.auto) {
			return models.NewAPIError(models.ErrRulesExists.Code(),
				fmt.Errorf("%v: %s %s", models.ErrRulesExists, m, rule.Pattern))
		}
	}

	if a.bound[ginPath] == nil {
		a.bound[ginPath] = make(map[string]*binding)
	}

	// record before binding, the handlers resolve through the registry
	_, hadView := a.views[rule.Endpoint]
	a.views[rule.Endpoint] = view
	a.rules[rule.Endpoint] = append(a.rules[rule.Endpoint], rule)
	a.order = append(a.order, rule)

	var added []string
	repointed := make(map[string]*binding)
	err := func() error {
		for _, m := range rule.Methods {
			if b, ok := a.bound[ginPath][m]; ok && b.auto {
				// the dispatcher is already on the router, repoint it
				repointed[m] = b
				a.bound[ginPath][m] = &binding{rule: rule}
				continue
			}
			if err := a.bindRoute(m, ginPath, a.ruleHandler(rule)); err != nil {
				return err
			}
			a.bound[ginPath][m] = &binding{rule: rule}
			added = append(added, m)
		}

		if !rule.NoAutoOptions && !rule.HasMethod(http.MethodOptions) && a.bound[ginPath][http.MethodOptions] == nil {
			if err := a.bindRoute(http.MethodOptions, ginPath, a.autoOptionsHandler(ginPath)); err != nil {
				return err
			}
			a.bound[ginPath][http.MethodOptions] = &binding{auto: true}
			added = append(added, http.MethodOptions)
		}
		return nil
	}()
	if err != nil {
		// unwind, a rule the router rejected must not show up in the
		// registry. routes the router did accept resolve through the
		// registry and answer 404 from here on.
		if !hadView {
			delete(a.views, rule.Endpoint)
		}
		rs := a.rules[rule.Endpoint]
		if len(rs) > 1 {
			a.rules[rule.Endpoint] = rs[:len(rs)-1]
		} else {
			delete(a.rules, rule.Endpoint)
		}
		a.order = a.order[:len(a.order)-1]
		for _, m := range added {
			delete(a.bound[ginPath], m)
		}
		for m, b := range repointed {
			a.bound[ginPath][m] = b
		}
		if len(a.bound[ginPath]) == 0 {
			delete(a.bound, ginPath)
		}
		return err
	}
	return nil
}

// bindRoute adds the handler on the router, converting the router's panics on
// conflicting patterns into errors.
func (a *App) bindRoute(method, ginPath string, h gin.HandlerFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = models.NewAPIError(http.StatusBadRequest,
				fmt.Errorf("Rule cannot be bound: %v", rec))
		}
	}()
	a.Router.Handle(method, ginPath, h)
	return nil
}

// Handle is shorthand for AddURLRule pinned to a single method.
func (a *App) Handle(method, pattern string, view http.Handler, opts ...RouteOption) error {
	return a.AddURLRule(pattern, "", view, append(opts, Methods(method))...)
}

func (a *App) GET(pattern string, view http.HandlerFunc, opts ...RouteOption) error {
	return a.Handle(http.MethodGet, pattern, view, opts...)
}

func (a *App) POST(pattern string, view http.HandlerFunc, opts ...RouteOption) error {
	return a.Handle(http.MethodPost, pattern, view, opts...)
}

func (a *App) PUT(pattern string, view http.HandlerFunc, opts ...RouteOption) error {
	return a.Handle(http.MethodPut, pattern, view, opts...)
}

func (a *App) PATCH(pattern string, view http.HandlerFunc, opts ...RouteOption) error {
	return a.Handle(http.MethodPatch, pattern, view, opts...)
}

func (a *App) DELETE(pattern string, view http.HandlerFunc, opts ...RouteOption) error {
	return a.Handle(http.MethodDelete, pattern, view, opts...)
}

// ruleHandler adapts a view to the router, carrying the rule and captured
// parameters in the request context.
func (a *App) ruleHandler(rule *models.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.dispatchRule(c, rule)
	}
}

func (a *App) dispatchRule(c *gin.Context, rule *models.Rule) {
	if !a.matchesHost(c.Request, rule) {
		handleErrorResponse(c, models.NewAPIError(models.ErrHostNotAllowed.Code(),
			fmt.Errorf("%v: %s", models.ErrHostNotAllowed, c.Request.Host)))
		return
	}

	params := make(map[string]string, len(c.Params))
	for _, p := range c.Params {
		// the catch all parameter keeps a leading slash on the router,
		// captured values don't
		params[p.Key] = strings.TrimPrefix(p.Value, "/")
	}

	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, ruleCtxKey{}, rule)
	ctx = context.WithValue(ctx, paramsCtxKey{}, params)
	c.Request = c.Request.WithContext(ctx)

	if err := a.requestListeners.BeforeRequest(ctx, rule); err != nil {
		handleErrorResponse(c, err)
		return
	}

	a.viewFor(rule.Endpoint).ServeHTTP(c.Writer, c.Request)

	if err := a.requestListeners.AfterRequest(ctx, rule); err != nil {
		common.Logger(ctx).WithError(err).Error("after request listener error")
	}
}

func (a *App) viewFor(endpoint string) http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.views[endpoint]; ok {
		return v
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleErrorResponse(r.Context(), w, models.NewAPIError(models.ErrEndpointNotFound.Code(),
			fmt.Errorf("%v: %s", models.ErrEndpointNotFound, endpoint)))
	})
}

// matchesHost applies the rule's host or subdomain pin against the request.
// Rules without a pin match any host.
func (a *App) matchesHost(r *http.Request, rule *models.Rule) bool {
	if rule.Host != "" {
		return r.Host == rule.Host
	}
	if rule.Subdomain != "" {
		return r.Host == rule.Subdomain+"."+a.serverName
	}
	return true
}

// autoOptionsHandler answers OPTIONS for paths that have no explicit OPTIONS
// view with an Allow header computed from the registry.
func (a *App) autoOptionsHandler(ginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		a.mu.Lock()
		b := a.bound[ginPath][http.MethodOptions]
		allow := allowHeader(a.bound[ginPath])
		a.mu.Unlock()

		if b != nil && b.rule != nil {
			// an explicit OPTIONS view took the slot over later
			a.dispatchRule(c, b.rule)
			return
		}
		c.Header("Allow", allow)
		c.Status(http.StatusOK)
	}
}

func allowHeader(bindings map[string]*binding) string {
	methods := make([]string, 0, len(bindings))
	for m := range bindings {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}

// URLFor builds a URL to the given endpoint with the params substituted.
// Params that are not part of the chosen rule become query arguments in
// sorted order. When several rules share the endpoint the one consuming the
// most parameters wins.
func (a *App) URLFor(endpoint string, params map[string]string) (string, error) {
	a.mu.Lock()
	rules := append([]*models.Rule(nil), a.rules[endpoint]...)
	a.mu.Unlock()

	if len(rules) == 0 {
		return "", models.NewAPIError(models.ErrEndpointNotFound.Code(),
			fmt.Errorf("%v: %s", models.ErrEndpointNotFound, endpoint))
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].Params()) > len(rules[j].Params())
	})

	var firstErr error
	for _, rule := range rules {
		u, err := rule.BuildURL(params)
		if err == nil {
			return u, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}

// Rules returns the registered rules in registration order. The returned
// rules are clones, mutating them does not affect the registry.
func (a *App) Rules() models.Rules {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(models.Rules, len(a.order))
	for i, r := range a.order {
		out[i] = r.Clone()
	}
	return out
}

// ViewFunc returns the view registered under endpoint, or nil.
func (a *App) ViewFunc(endpoint string) http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.views[endpoint]
}

// handlerName digs out the name a view function was declared under. Handlers
// that are not plain functions have no name, those need an explicit endpoint.
func handlerName(view http.Handler) string {
	v := reflect.ValueOf(view)
	if v.Kind() != reflect.Func {
		return ""
	}
	fn := runtime.FuncForPC(v.Pointer())
	if fn == nil {
		return ""
	}
	name := path.Base(fn.Name())
	name = strings.TrimSuffix(name, "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// sameView reports whether two views are the same function or pointer. Views
// of other shapes never compare equal.
func sameView(a, b http.Handler) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != bv.Kind() {
		return false
	}
	switch av.Kind() {
	case reflect.Func, reflect.Ptr:
		return av.Pointer() == bv.Pointer()
	}
	return false
}

type ruleCtxKey struct{}
type paramsCtxKey struct{}

// Params returns the path parameters captured for this request.
func Params(r *http.Request) map[string]string {
	p, _ := r.Context().Value(paramsCtxKey{}).(map[string]string)
	return p
}

// Param returns the named path parameter captured for this request.
func Param(r *http.Request, name string) string {
	return Params(r)[name]
}

// CurrentRule returns the rule this request matched, or nil outside a
// dispatch.
func CurrentRule(r *http.Request) *models.Rule {
	rule, _ := r.Context().Value(ruleCtxKey{}).(*models.Rule)
	return rule
}
