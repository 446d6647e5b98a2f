package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-05", true},
		{" 2024-12-31 ", true},
		{"2024-02-30", false},
		{"05/01/2024", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, time.UTC, d.Location())
			continue
		}
		require.Error(t, err, tc.in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestDateJSONUsesCanonicalLayout(t *testing.T) {
	b, err := json.Marshal(struct{ D Date }{NewDate(2024, 1, 5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"D":"2024-01-05"}`, string(b))

	var out struct{ D Date }
	require.NoError(t, json.Unmarshal([]byte(`{"D":"2024-03-09"}`), &out))
	assert.True(t, out.D.Equal(NewDate(2024, 3, 9)))
}

func TestWageRecordValidate(t *testing.T) {
	good := WageRecord{WorkerName: "Ram", WorkDate: NewDate(2024, 1, 5), Amount: decimal.NewFromInt(500)}
	require.NoError(t, good.Validate())

	zero := good
	zero.Amount = decimal.Zero
	require.NoError(t, zero.Validate(), "zero is a valid wage")

	bads := []WageRecord{
		{WorkerName: "", WorkDate: NewDate(2024, 1, 5), Amount: decimal.NewFromInt(1)},
		{WorkerName: "  ", WorkDate: NewDate(2024, 1, 5), Amount: decimal.NewFromInt(1)},
		{WorkerName: "Ram", Amount: decimal.NewFromInt(1)},
		{WorkerName: "Ram", WorkDate: NewDate(2024, 1, 5), Amount: decimal.NewFromInt(-1)},
		{WorkerName: "Ram", WorkDate: NewDate(2024, 1, 5), Amount: decimal.RequireFromString("612.555")},
		{WorkerName: "Ram", WorkDate: NewDate(2024, 1, 5), Amount: decimal.New(1, 12)},
	}
	for i, r := range bads {
		err := r.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, ErrValidation), "case %d: %v", i, err)
	}
}

func TestUnavailableWrapsBoth(t *testing.T) {
	io := errors.New("disk on fire")
	err := Unavailable("list records", io)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, io)
}
