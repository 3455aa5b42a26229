package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

/* Handlers implements Handler with one method per event kind. All
 * domain writes are idempotent upserts keyed by natural identifiers,
 * so a redelivered event converges to the same state.
 */
type Handlers struct {
	accounts      AccountStore
	plans         PlanStore
	subscriptions SubscriptionStore
	usage         UsageStore
	quotas        QuotaSetter
	log           *slog.Logger
}

// NewHandlers wires the domain handlers.
func NewHandlers(accounts AccountStore, plans PlanStore, subscriptions SubscriptionStore, usage UsageStore, quotas QuotaSetter, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		accounts:      accounts,
		plans:         plans,
		subscriptions: subscriptions,
		usage:         usage,
		quotas:        quotas,
		log:           log,
	}
}

// Handle dispatches on the closed event kind set.
func (h *Handlers) Handle(ctx context.Context, kind Kind, object []byte) error {
	switch kind {
	case KindCheckoutCompleted:
		return h.checkoutCompleted(ctx, object)
	case KindSubscriptionUpdated:
		return h.subscriptionUpdated(ctx, object)
	case KindSubscriptionDeleted:
		return h.subscriptionDeleted(ctx, object)
	case KindInvoicePaid:
		return h.invoicePaid(ctx, object)
	case KindInvoicePaymentFailed:
		return h.invoicePaymentFailed(ctx, object)
	default:
		return nil
	}
}

/* Provider object shapes. Only the fields the handlers read are
 * declared; everything else in the raw object is ignored.
 */

type checkoutSession struct {
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	PriceID        string `json:"price_id"`
}

type providerSubscription struct {
	ID                 string `json:"id"`
	CustomerID         string `json:"customer"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type invoice struct {
	CustomerID     string `json:"customer"`
	SubscriptionID string `json:"subscription"`
	PeriodStart    int64  `json:"period_start"`
	PeriodEnd      int64  `json:"period_end"`
}

func (h *Handlers) checkoutCompleted(ctx context.Context, object []byte) error {
	var session checkoutSession
	if err := json.Unmarshal(object, &session); err != nil {
		return Permanent(fmt.Errorf("unmarshaling checkout session: %w", err))
	}
	if session.CustomerID == "" {
		return Permanent(errors.New("checkout session has no customer"))
	}

	account, err := h.account(ctx, session.CustomerID)
	if err != nil {
		return err
	}
	plan, err := h.plan(ctx, session.PriceID)
	if err != nil {
		return err
	}

	if session.SubscriptionID == "" {
		// one-time checkout: nothing to mirror locally
		h.log.Info("checkout without subscription acknowledged",
			"customer_id", session.CustomerID, "user_id", account.UserID)
		return nil
	}

	err = h.subscriptions.Upsert(ctx, Subscription{
		SubscriptionID: session.SubscriptionID,
		UserID:         account.UserID,
		PlanID:         plan.ID,
		Status:         "active",
	})
	if err != nil {
		return Transient(fmt.Errorf("upserting subscription %s: %w", session.SubscriptionID, err))
	}
	if err := h.syncQuota(ctx, account.UserID, plan.MonthlyQuota); err != nil {
		return err
	}
	h.log.Info("checkout completed",
		"user_id", account.UserID,
		"subscription_id", session.SubscriptionID,
		"plan", plan.Name,
	)
	return nil
}

func (h *Handlers) subscriptionUpdated(ctx context.Context, object []byte) error {
	var sub providerSubscription
	if err := json.Unmarshal(object, &sub); err != nil {
		return Permanent(fmt.Errorf("unmarshaling subscription: %w", err))
	}
	if sub.ID == "" || sub.CustomerID == "" {
		return Permanent(errors.New("subscription object is missing id or customer"))
	}

	account, err := h.account(ctx, sub.CustomerID)
	if err != nil {
		return err
	}
	plan, err := h.plan(ctx, sub.priceID())
	if err != nil {
		return err
	}

	err = h.subscriptions.Upsert(ctx, Subscription{
		SubscriptionID:     sub.ID,
		UserID:             account.UserID,
		PlanID:             plan.ID,
		Status:             sub.Status,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	})
	if err != nil {
		return Transient(fmt.Errorf("upserting subscription %s: %w", sub.ID, err))
	}
	if err := h.syncQuota(ctx, account.UserID, plan.MonthlyQuota); err != nil {
		return err
	}
	h.log.Info("subscription updated",
		"user_id", account.UserID,
		"subscription_id", sub.ID,
		"status", sub.Status,
	)
	return nil
}

func (h *Handlers) subscriptionDeleted(ctx context.Context, object []byte) error {
	var sub providerSubscription
	if err := json.Unmarshal(object, &sub); err != nil {
		return Permanent(fmt.Errorf("unmarshaling subscription: %w", err))
	}
	if sub.ID == "" || sub.CustomerID == "" {
		return Permanent(errors.New("subscription object is missing id or customer"))
	}

	account, err := h.account(ctx, sub.CustomerID)
	if err != nil {
		return err
	}

	current, err := h.subscriptions.Get(ctx, sub.ID)
	if errors.Is(err, ErrNotFound) {
		// deleting an unknown subscription is a no-op, not a failure
		h.log.Info("deletion of unknown subscription acknowledged",
			"subscription_id", sub.ID, "user_id", account.UserID)
		return nil
	}
	if err != nil {
		return Transient(fmt.Errorf("loading subscription %s: %w", sub.ID, err))
	}

	current.Status = "canceled"
	if err := h.subscriptions.Upsert(ctx, current); err != nil {
		return Transient(fmt.Errorf("canceling subscription %s: %w", sub.ID, err))
	}
	h.log.Info("subscription canceled",
		"user_id", account.UserID, "subscription_id", sub.ID)
	return nil
}

/* invoicePaid opens a fresh usage period for the user with the quota
 * of their current plan. The upsert key is user id + period start, so
 * a redelivered invoice resets the same period rather than minting a
 * second one.
 */
func (h *Handlers) invoicePaid(ctx context.Context, object []byte) error {
	var inv invoice
	if err := json.Unmarshal(object, &inv); err != nil {
		return Permanent(fmt.Errorf("unmarshaling invoice: %w", err))
	}
	if inv.CustomerID == "" {
		return Permanent(errors.New("invoice has no customer"))
	}

	account, err := h.account(ctx, inv.CustomerID)
	if err != nil {
		return err
	}

	quota := 0
	if inv.SubscriptionID != "" {
		sub, err := h.subscriptions.Get(ctx, inv.SubscriptionID)
		switch {
		case errors.Is(err, ErrNotFound):
			h.log.Warn("invoice references unknown subscription, using default plan",
				"subscription_id", inv.SubscriptionID, "user_id", account.UserID)
		case err != nil:
			return Transient(fmt.Errorf("loading subscription %s: %w", inv.SubscriptionID, err))
		default:
			plan, err := h.plans.Get(ctx, sub.PlanID)
			if err == nil {
				quota = plan.MonthlyQuota
			}
		}
	}
	if quota == 0 {
		plan, err := h.plans.Default(ctx)
		if err != nil {
			return Transient(fmt.Errorf("loading default plan: %w", err))
		}
		quota = plan.MonthlyQuota
	}

	periodStart := time.Unix(inv.PeriodStart, 0)
	existing, err := h.usage.Get(ctx, account.UserID, periodStart)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Transient(fmt.Errorf("loading usage period: %w", err))
	}

	err = h.usage.Upsert(ctx, UsagePeriod{
		UserID:      account.UserID,
		PeriodStart: periodStart,
		Quota:       quota,
		Used:        existing.Used, // preserved across redeliveries
	})
	if err != nil {
		return Transient(fmt.Errorf("upserting usage period: %w", err))
	}
	if err := h.syncQuota(ctx, account.UserID, quota); err != nil {
		return err
	}
	h.log.Info("usage period opened",
		"user_id", account.UserID,
		"period_start", periodStart,
		"quota", quota,
	)
	return nil
}

func (h *Handlers) invoicePaymentFailed(ctx context.Context, object []byte) error {
	var inv invoice
	if err := json.Unmarshal(object, &inv); err != nil {
		return Permanent(fmt.Errorf("unmarshaling invoice: %w", err))
	}
	if inv.CustomerID == "" {
		return Permanent(errors.New("invoice has no customer"))
	}

	account, err := h.account(ctx, inv.CustomerID)
	if err != nil {
		return err
	}

	if inv.SubscriptionID == "" {
		h.log.Warn("payment failed for invoice without subscription",
			"user_id", account.UserID)
		return nil
	}

	sub, err := h.subscriptions.Get(ctx, inv.SubscriptionID)
	if errors.Is(err, ErrNotFound) {
		h.log.Warn("payment failed for unknown subscription",
			"subscription_id", inv.SubscriptionID, "user_id", account.UserID)
		return nil
	}
	if err != nil {
		return Transient(fmt.Errorf("loading subscription %s: %w", inv.SubscriptionID, err))
	}

	sub.Status = "past_due"
	if err := h.subscriptions.Upsert(ctx, sub); err != nil {
		return Transient(fmt.Errorf("marking subscription past due: %w", err))
	}
	h.log.Warn("subscription marked past due",
		"user_id", account.UserID, "subscription_id", inv.SubscriptionID)
	return nil
}

/* syncQuota writes the granted quota through to metering so the limit
 * enforced on conversions matches the plan. A plan without a quota
 * leaves the metering default untouched. The write is idempotent, so
 * a redelivered event converges like the upserts do.
 */
func (h *Handlers) syncQuota(ctx context.Context, userID string, quota int) error {
	if quota <= 0 {
		return nil
	}
	if err := h.quotas.SetLimit(ctx, userID, quota); err != nil {
		return Transient(fmt.Errorf("syncing quota for %s: %w", userID, err))
	}
	return nil
}

// account resolves the provider customer to a local account. A missing
// account is permanent: redelivery cannot create one.
func (h *Handlers) account(ctx context.Context, customerID string) (Account, error) {
	account, err := h.accounts.GetByCustomerID(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return Account{}, Permanent(fmt.Errorf("no account for customer %s", customerID))
	}
	if err != nil {
		return Account{}, Transient(fmt.Errorf("resolving customer %s: %w", customerID, err))
	}
	return account, nil
}

// plan resolves a price id, falling back to the default plan with a
// warning when the price is unknown.
func (h *Handlers) plan(ctx context.Context, priceID string) (Plan, error) {
	if priceID != "" {
		plan, err := h.plans.GetByPriceID(ctx, priceID)
		if err == nil {
			return plan, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Plan{}, Transient(fmt.Errorf("resolving price %s: %w", priceID, err))
		}
		h.log.Warn("unknown price id, using default plan", "price_id", priceID)
	}
	plan, err := h.plans.Default(ctx)
	if err != nil {
		return Plan{}, Transient(fmt.Errorf("loading default plan: %w", err))
	}
	return plan, nil
}

func (s providerSubscription) priceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}
