package config

import "time"

// PaymentConfig configures the hosted checkout provider and the
// reconciliation of pending payments.
type PaymentConfig struct {
	SecretKey       string        // provider API key
	WebhookSecret   string        // signing secret of the webhook endpoint
	Currency        string        // ISO currency of application fees
	ProviderTimeout time.Duration // upper bound of every outbound provider call
	PendingTTL      time.Duration // age after which a pending payment is reconciled
	LockTTL         time.Duration // expiry of the per-application checkout lock
	SweepSchedule   string        // cron expression (with seconds) for the stale sweep
	SweepBatch      int           // payments reconciled per sweep run
}

// LoadPaymentConfig reads the provider keys (required) and the
// reconciliation tuning (optional, with defaults).
func LoadPaymentConfig() PaymentConfig {
	LoadDotEnv()
	cfg := PaymentConfig{
		SecretKey:       must("STRIPE_SECRET_KEY"),
		WebhookSecret:   must("STRIPE_WEBHOOK_SECRET"),
		Currency:        envStr("PAYMENT_CURRENCY", "USD"),
		ProviderTimeout: envDur("PROVIDER_TIMEOUT", 10*time.Second),
		PendingTTL:      envDur("PAYMENT_PENDING_TTL", 24*time.Hour),
		LockTTL:         envDur("CHECKOUT_LOCK_TTL", 30*time.Second),
		SweepSchedule:   envStr("SWEEP_SCHEDULE", "0 */15 * * * *"),
		SweepBatch:      envInt("SWEEP_BATCH", 100),
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	if cfg.SweepBatch < 1 {
		cfg.SweepBatch = 100
	}
	return cfg
}
