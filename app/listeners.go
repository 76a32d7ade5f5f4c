package app

import (
	"context"

	"github.com/flagonhq/flagon/ext"
	"github.com/flagonhq/flagon/models"
)

type ruleListeners []ext.RuleListener

var _ ext.RuleListener = new(ruleListeners)

// AddRuleListener adds a listener that will be notified around rule
// registration.
func (a *App) AddRuleListener(listener ext.RuleListener) {
	*a.ruleListeners = append(*a.ruleListeners, listener)
}

func (l *ruleListeners) BeforeRuleAdd(ctx context.Context, rule *models.Rule) error {
	for _, ll := range *l {
		err := ll.BeforeRuleAdd(ctx, rule)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *ruleListeners) AfterRuleAdd(ctx context.Context, rule *models.Rule) error {
	for _, ll := range *l {
		err := ll.AfterRuleAdd(ctx, rule)
		if err != nil {
			return err
		}
	}
	return nil
}

type appListeners []ext.AppListener

var _ ext.AppListener = new(appListeners)

// AddAppListener adds a listener that will be notified around the app
// lifecycle.
func (a *App) AddAppListener(listener ext.AppListener) {
	*a.appListeners = append(*a.appListeners, listener)
}

func (l *appListeners) BeforeAppStart(ctx context.Context) error {
	for _, ll := range *l {
		err := ll.BeforeAppStart(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *appListeners) AfterAppStop(ctx context.Context) error {
	for _, ll := range *l {
		err := ll.AfterAppStop(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

type requestListeners []ext.RequestListener

var _ ext.RequestListener = new(requestListeners)

// AddRequestListener adds a listener that will be notified around each
// dispatch.
func (a *App) AddRequestListener(listener ext.RequestListener) {
	*a.requestListeners = append(*a.requestListeners, listener)
}

func (l *requestListeners) BeforeRequest(ctx context.Context, rule *models.Rule) error {
	for _, ll := range *l {
		err := ll.BeforeRequest(ctx, rule)
		if err != nil {
			return err
		}
	}
	return nil
}

func (l *requestListeners) AfterRequest(ctx context.Context, rule *models.Rule) error {
	for _, ll := range *l {
		err := ll.AfterRequest(ctx, rule)
		if err != nil {
			return err
		}
	}
	return nil
}
