package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"nikosoko-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestExitMethodWithError_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "json")
	defer Initialize("info", "text")

	ExitMethodWithError("membershipService.CastLeaderVote", fmt.Errorf("vote: %w", domain.ErrAlreadyVoted))
	rec := lastLine(t, &buf)
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "nikosoko", rec["app"])

	ExitMethodWithError("gatePassService.Redeem", errors.New("connection refused"))
	rec = lastLine(t, &buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "gatePassService.Redeem", rec["method"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	InitializeWriter(&buf, "info", "json")
	defer Initialize("info", "text")

	EnterMethod("authService.Login")
	assert.Zero(t, buf.Len())
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "******678", MaskPhone("+254 712 345 678"))
	assert.Equal(t, "**", MaskPhone("12"))
	assert.Equal(t, "", MaskPhone(""))
}
