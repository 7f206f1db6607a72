package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptRoundTrip(t *testing.T) {
	require.NoError(t, SetEncryptionKey(testKey))

	sealed, err := EncryptString("access-token-123")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "access-token-123")

	again, err := EncryptString("access-token-123")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := DecryptString(sealed)
	require.NoError(t, err)
	assert.Equal(t, "access-token-123", plain)
}

func TestDecryptRejectsTampering(t *testing.T) {
	require.NoError(t, SetEncryptionKey(testKey))

	_, err := DecryptString("c2hvcnQ=")
	require.Error(t, err)

	sealed, err := EncryptString("payload")
	require.NoError(t, err)
	b := []byte(sealed)
	if b[len(b)-3] == 'A' {
		b[len(b)-3] = 'B'
	} else {
		b[len(b)-3] = 'A'
	}
	_, err = DecryptString(string(b))
	require.Error(t, err)
}

func TestSetEncryptionKeyLength(t *testing.T) {
	assert.ErrorIs(t, SetEncryptionKey("short"), ErrInvalidKey)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword("correct horse", hash))
	assert.False(t, CheckPassword("wrong", hash))
}

func TestTOTP(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("budi@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "otpauth://totp/ManageNow"))

	code, err := TOTPCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, VerifyTOTP(secret, code))
	assert.False(t, VerifyTOTP(secret, "000000x"))
	assert.False(t, VerifyTOTP("", code))
}

func TestAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("secret", "user-1", "session-1", time.Now().Add(time.Hour))
	require.NoError(t, err)

	claims, err := ParseAccessToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID)

	_, err = ParseAccessToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateAccessToken("secret", "user-1", "session-1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = ParseAccessToken("secret", expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStateTokenIsNotAnAccessToken(t *testing.T) {
	state, err := GenerateStateToken("secret", StateClaims{UserID: "u1", Provider: "brick", InstitutionID: "2"})
	require.NoError(t, err)

	claims, err := ParseStateToken("secret", state)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "brick", claims.Provider)
	assert.Equal(t, "2", claims.InstitutionID)

	_, err = ParseAccessToken("secret", state)
	assert.Error(t, err)
}

func TestMaskString(t *testing.T) {
	prev := IsProduction
	t.Cleanup(func() { IsProduction = prev })

	IsProduction = false
	assert.Equal(t, "budi@example.com paid Rp 150.000", MaskString("budi@example.com paid Rp 150.000"))

	IsProduction = true
	masked := MaskString("budi@example.com paid Rp 150.000 from 1234567890 session 3f2b8c1e-1111-2222-3333-444455556666")
	assert.NotContains(t, masked, "budi@example.com")
	assert.NotContains(t, masked, "150.000")
	assert.Contains(t, masked, "******7890")
	assert.Contains(t, masked, "3f2b8c1e...")
	assert.Equal(t, "***", MaskAmount(decimal.NewFromInt(10)))
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "****", MaskAccountNumber("123"))
	assert.Equal(t, "****5678", MaskAccountNumber("12345678"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
}

func TestRenderBillReminder(t *testing.T) {
	subject, html, err := RenderBillReminder(BillReminderEmail{
		FirstName:   "Ani <script>",
		Language:    "fr",
		FrontendURL: "https://app.managenow.test",
		Lines: []ReminderLine{
			{Name: "Rent", Amount: "$ 1,200.00", DueDate: "2024-03-12", DaysUntilDue: 0},
			{Name: "Phone", Amount: "$ 30.00", DueDate: "2024-03-15", DaysUntilDue: 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2 upcoming bill(s)", subject)
	assert.Contains(t, html, "Hi Ani &lt;script&gt;")
	assert.Contains(t, html, "due today")
	assert.Contains(t, html, "due in 3 days")
	assert.Contains(t, html, "https://app.managenow.test/bills")
	assert.True(t, strings.Count(html, "<li>") == 2)
}
