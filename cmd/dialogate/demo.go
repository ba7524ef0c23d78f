package main

import (
	"fmt"

	"github.com/zen-systems/dialogate/pkg/hooks"
	"github.com/zen-systems/dialogate/pkg/router"
)

// demoHooks registers handlers for the order-management intents the
// sample classifier project ships with.
func demoHooks() (*hooks.Registry, error) {
	reg := hooks.NewRegistry()

	register := func(intent string, h hooks.Handler) error {
		return reg.Register(intent, h)
	}

	if err := register("CancelOrder", func(entities []router.Entity) (string, error) {
		orderID := hooks.EntityValue(entities, "OrderId")
		if orderID == "" {
			return "", fmt.Errorf("no order id in utterance")
		}
		return fmt.Sprintf("Order %s has been canceled.", orderID), nil
	}); err != nil {
		return nil, err
	}

	if err := register("RefundStatus", func(entities []router.Entity) (string, error) {
		orderID := hooks.EntityValue(entities, "OrderId")
		if orderID == "" {
			return "", fmt.Errorf("no order id in utterance")
		}
		return fmt.Sprintf("The refund for order %s is being processed.", orderID), nil
	}); err != nil {
		return nil, err
	}

	if err := register("OrderStatus", func(entities []router.Entity) (string, error) {
		orderID := hooks.EntityValue(entities, "OrderId")
		if orderID == "" {
			return "", fmt.Errorf("no order id in utterance")
		}
		return fmt.Sprintf("Order %s is on its way.", orderID), nil
	}); err != nil {
		return nil, err
	}

	return reg, nil
}
