package middlewares

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"needthisdone-payments/apperr"
	"needthisdone-payments/dedup"
)

type downStore struct{}

func (downStore) SetNX(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}
func (downStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}
func (downStore) Del(context.Context, string) error { return errors.New("connection refused") }

type dedupHarness struct {
	app   *fiber.App
	calls atomic.Int32
	// next is returned by the handler once, then reset
	next atomic.Value
}

func newDedupHarness(t *testing.T, store dedup.Store, failOpen bool) *dedupHarness {
	t.Helper()
	h := &dedupHarness{}
	h.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.NewNop())})
	h.app.Use(func(c *fiber.Ctx) error {
		c.Locals("userID", c.Get("X-User"))
		return c.Next()
	})
	h.app.Use(Dedup(DedupConfig{
		Guard:    dedup.NewGuard(store, dedup.WithTTL(time.Minute)),
		Label:    "test",
		FailOpen: failOpen,
	}))
	handler := func(c *fiber.Ctx) error {
		h.calls.Add(1)
		if err, ok := h.next.Swap(errHolder{}).(errHolder); ok && err.err != nil {
			return err.err
		}
		return c.SendStatus(fiber.StatusCreated)
	}
	h.app.Post("/orders", handler)
	h.app.Get("/orders", handler)
	return h
}

type errHolder struct{ err error }

func (h *dedupHarness) failNext(err error) { h.next.Store(errHolder{err: err}) }

func (h *dedupHarness) do(t *testing.T, method, body, user, key string) int {
	t.Helper()
	req := httptest.NewRequest(method, "/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestDedup_RejectsRepeat(t *testing.T) {
	h := newDedupHarness(t, dedup.NewMemoryStore(), false)

	assert.Equal(t, fiber.StatusCreated, h.do(t, "POST", `{"total":"10.00","deposit_amount":"5.00"}`, "u1", ""))
	// same content, different key order and whitespace
	assert.Equal(t, fiber.StatusConflict, h.do(t, "POST", `{ "deposit_amount":"5.00", "total":"10.00" }`, "u1", ""))
	assert.Equal(t, int32(1), h.calls.Load())

	// different user, different body, different key: all distinct requests
	assert.Equal(t, fiber.StatusCreated, h.do(t, "POST", `{"total":"10.00","deposit_amount":"5.00"}`, "u2", ""))
	assert.Equal(t, fiber.StatusCreated, h.do(t, "POST", `{"total":"11.00","deposit_amount":"5.00"}`, "u1", ""))
	assert.Equal(t, fiber.StatusCreated, h.do(t, "POST", `{"total":"10.00","deposit_amount":"5.00"}`, "u1", "k-2"))
	assert.Equal(t, int32(4), h.calls.Load())
}

func TestDedup_IgnoresSafeMethods(t *testing.T) {
	h := newDedupHarness(t, dedup.NewMemoryStore(), false)

	assert.Equal(t, fiber.StatusCreated, h.do(t, "GET", "", "u1", ""))
	assert.Equal(t, fiber.StatusCreated, h.do(t, "GET", "", "u1", ""))
}

func TestDedup_FailedHandlerReleasesMarker(t *testing.T) {
	h := newDedupHarness(t, dedup.NewMemoryStore(), false)
	body := `{"total":"10.00"}`

	h.failNext(apperr.Store(errors.New("db down")))
	assert.Equal(t, fiber.StatusServiceUnavailable, h.do(t, "POST", body, "u1", ""))
	assert.Equal(t, fiber.StatusCreated, h.do(t, "POST", body, "u1", ""))
}

func TestDedup_ValidationFailureKeepsMarker(t *testing.T) {
	h := newDedupHarness(t, dedup.NewMemoryStore(), false)
	body := `{"total":"10.00"}`

	h.failNext(apperr.Validation(apperr.CodeAmountMismatch))
	assert.Equal(t, fiber.StatusUnprocessableEntity, h.do(t, "POST", body, "u1", ""))
	assert.Equal(t, fiber.StatusConflict, h.do(t, "POST", body, "u1", ""))
}

func TestDedup_StoreDown(t *testing.T) {
	closed := newDedupHarness(t, downStore{}, false)
	assert.Equal(t, fiber.StatusServiceUnavailable, closed.do(t, "POST", `{}`, "u1", ""))
	assert.Equal(t, int32(0), closed.calls.Load())

	open := newDedupHarness(t, downStore{}, true)
	assert.Equal(t, fiber.StatusCreated, open.do(t, "POST", `{}`, "u1", ""))
	assert.Equal(t, fiber.StatusCreated, open.do(t, "POST", `{}`, "u1", ""))
	assert.Equal(t, int32(2), open.calls.Load())
}

func TestDedup_KeyTooLong(t *testing.T) {
	h := newDedupHarness(t, dedup.NewMemoryStore(), false)
	assert.Equal(t, fiber.StatusBadRequest, h.do(t, "POST", `{}`, "u1", strings.Repeat("k", maxIdempotencyKeyLen+1)))
}
