package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSecretsMergeAndDedupe(t *testing.T) {
	got := webhookSecrets("whsec_a, whsec_b", "whsec_b", "whsec_c")
	assert.Equal(t, []string{"whsec_a", "whsec_b", "whsec_c"}, got)
}

func TestWebhookSecretsSkipEmpty(t *testing.T) {
	got := webhookSecrets("", " , ", "whsec_only")
	assert.Equal(t, []string{"whsec_only"}, got)
}

func TestWebhookSecretsOrderPreserved(t *testing.T) {
	// Live first so rotation tries the current secret before the old one.
	got := webhookSecrets("whsec_live", "whsec_old,whsec_live")
	assert.Equal(t, []string{"whsec_live", "whsec_old"}, got)
}

func TestWaterPriceLookup(t *testing.T) {
	cfg := DefaultPricingConfig()

	price, ok := cfg.WaterPrice("pk")
	require.True(t, ok)
	assert.Equal(t, int64(18_000), price)

	_, ok = cfg.WaterPrice("XX")
	assert.False(t, ok)
}
