package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactForm struct {
	Email  string `json:"email"`
	Action string `json:"action"`
}

func TestCreateFingerprint_Deterministic(t *testing.T) {
	form := contactForm{Email: "ada@example.com", Action: "quote_request"}

	fp1, err := CreateFingerprint(form, "user-1")
	require.NoError(t, err)
	fp2, err := CreateFingerprint(form, "user-1")
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestCreateFingerprint_KeyOrderIndependent(t *testing.T) {
	a := map[string]any{"email": "ada@example.com", "action": "subscribe", "meta": map[string]any{"x": 1, "y": 2}}
	b := map[string]any{"meta": map[string]any{"y": 2, "x": 1}, "action": "subscribe", "email": "ada@example.com"}
	// struct field order differs from the map but serialises to the same object
	c := struct {
		Action string         `json:"action"`
		Meta   map[string]int `json:"meta"`
		Email  string         `json:"email"`
	}{"subscribe", map[string]int{"x": 1, "y": 2}, "ada@example.com"}

	fpA, err := CreateFingerprint(a, "")
	require.NoError(t, err)
	fpB, err := CreateFingerprint(b, "")
	require.NoError(t, err)
	fpC, err := CreateFingerprint(c, "")
	require.NoError(t, err)

	assert.Equal(t, fpA, fpB)
	assert.Equal(t, fpA, fpC)
}

func TestCreateFingerprint_Differs(t *testing.T) {
	base := contactForm{Email: "ada@example.com", Action: "subscribe"}
	fp, err := CreateFingerprint(base, "user-1")
	require.NoError(t, err)

	otherScope, err := CreateFingerprint(base, "user-2")
	require.NoError(t, err)
	assert.NotEqual(t, fp, otherScope)

	unscoped, err := CreateFingerprint(base, "")
	require.NoError(t, err)
	assert.NotEqual(t, fp, unscoped)

	otherValue, err := CreateFingerprint(contactForm{Email: "ada@example.com", Action: "unsubscribe"}, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, fp, otherValue)
}

func TestCreateFingerprint_MutationAfterHashing(t *testing.T) {
	payload := map[string]any{"email": "ada@example.com", "items": []any{"a", "b"}}

	before, err := CreateFingerprint(payload, "")
	require.NoError(t, err)

	payload["email"] = "grace@example.com"
	payload["items"].([]any)[0] = "z"

	again, err := CreateFingerprint(map[string]any{"email": "ada@example.com", "items": []any{"a", "b"}}, "")
	require.NoError(t, err)
	assert.Equal(t, before, again)

	after, err := CreateFingerprint(payload, "")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestCreateFingerprint_LargeNumbersKeepPrecision(t *testing.T) {
	a, err := CreateFingerprint(map[string]any{"amount": int64(9007199254740993)}, "")
	require.NoError(t, err)
	b, err := CreateFingerprint(map[string]any{"amount": int64(9007199254740992)}, "")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCreateFingerprint_Unserialisable(t *testing.T) {
	_, err := CreateFingerprint(map[string]any{"ch": make(chan int)}, "")
	assert.Error(t, err)
}

func TestCanonicalBody(t *testing.T) {
	a, err := CreateFingerprint(CanonicalBody([]byte(`{"b":1,"a":2}`)), "")
	require.NoError(t, err)
	b, err := CreateFingerprint(CanonicalBody([]byte("  {\"a\":2, \"b\":1}\n")), "")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	assert.Equal(t, "email=a%40b.c", CanonicalBody([]byte("email=a%40b.c")))
	assert.Nil(t, CanonicalBody(nil))
}
