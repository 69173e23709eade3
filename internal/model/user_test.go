package model

import (
	"testing"
	"time"
)

func TestSignupIntent_Consumed(t *testing.T) {
	intent := &SignupIntent{}
	if intent.Consumed() {
		t.Error("intent without consumed_at should not be consumed")
	}

	now := time.Now()
	intent.ConsumedAt = &now
	if !intent.Consumed() {
		t.Error("intent with consumed_at should be consumed")
	}
}

func TestSignupIntent_Expired(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	intent := &SignupIntent{ExpiresAt: now.Add(10 * time.Minute)}

	if intent.Expired(now) {
		t.Error("intent before expiry should not be expired")
	}
	if intent.Expired(now.Add(10 * time.Minute)) {
		t.Error("intent exactly at expiry should not be expired")
	}
	if !intent.Expired(now.Add(11 * time.Minute)) {
		t.Error("intent past expiry should be expired")
	}
}
