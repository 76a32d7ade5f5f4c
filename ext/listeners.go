package ext

import (
	"context"

	"github.com/flagonhq/flagon/models"
)

// RuleListener is an interface used to inject custom code around URL rule
// registration.
type RuleListener interface {
	// BeforeRuleAdd called right before a rule is bound on the router.
	// The rule may be modified; returning an error aborts registration.
	BeforeRuleAdd(ctx context.Context, rule *models.Rule) error
	// AfterRuleAdd called after a rule is bound on the router
	AfterRuleAdd(ctx context.Context, rule *models.Rule) error
}

// AppListener is an interface used to inject custom code at key points in the
// application lifecycle.
type AppListener interface {
	// BeforeAppStart called right before the application starts serving
	BeforeAppStart(ctx context.Context) error
	// AfterAppStop called after the application has stopped serving
	AfterAppStop(ctx context.Context) error
}

// RequestListener enables callbacks around request handling. Listeners run
// after the built-in middleware and before the view function.
type RequestListener interface {
	// BeforeRequest called before a view function is executed. Returning
	// an error aborts the request with the error's status.
	BeforeRequest(ctx context.Context, rule *models.Rule) error
	// AfterRequest called after a view function completes
	AfterRequest(ctx context.Context, rule *models.Rule) error
}
