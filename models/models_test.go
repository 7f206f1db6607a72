package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-01T00:00:00Z")))
	assert.Equal(t, "2024-03-01", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 3, 5, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-05", d.String())
	assert.Equal(t, "2024-03", d.MonthYear())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("03/05/2024"))
}

func TestDateJSON(t *testing.T) {
	var body struct {
		Day  Date  `json:"day"`
		Next *Date `json:"next"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-01-31","next":null}`), &body))
	assert.Equal(t, NewDate(2024, time.January, 31), body.Day)
	assert.Nil(t, body.Next)
	assert.Equal(t, "2024-02-01", body.Day.AddDays(1).String())

	out, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-01-31","next":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"day":"31-01-2024"}`), &body))
}

func TestParseMonthYear(t *testing.T) {
	m, err := ParseMonthYear("2024-12")
	require.NoError(t, err)
	assert.Equal(t, time.December, m.Month())

	_, err = ParseMonthYear("2024-13")
	assert.Error(t, err)
}

func TestGoalProgress(t *testing.T) {
	g := Goal{TargetAmount: decimal.RequireFromString("300"), CurrentAmount: decimal.RequireFromString("100")}
	g.Progress()
	assert.Equal(t, "33.33", g.ProgressPercentage.StringFixed(2))
	assert.True(t, g.RemainingAmount.Equal(decimal.RequireFromString("200")))

	g.CurrentAmount = decimal.RequireFromString("450")
	g.Progress()
	assert.True(t, g.ProgressPercentage.Equal(decimal.RequireFromString("100")))
	assert.True(t, g.RemainingAmount.IsZero())
}

func TestUserFullNameAndSecrets(t *testing.T) {
	u := User{FirstName: "Budi", LastName: "Santoso", PasswordHash: "hash", TOTPSecret: "secret"}
	assert.Equal(t, "Budi Santoso", u.FullName())
	assert.Equal(t, "Budi", User{FirstName: "Budi"}.FullName())

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hash")
	assert.NotContains(t, string(out), "secret")
	assert.True(t, ValidType(TypeIncome))
	assert.False(t, ValidType("transfer"))
}
