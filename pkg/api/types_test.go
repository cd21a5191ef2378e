package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     JoinRequest
		wantErr string
	}{
		{
			name: "valid first join",
			req:  JoinRequest{Code: "abc123", StudentName: "Kim"},
		},
		{
			name: "valid rejoin with pin",
			req:  JoinRequest{Code: "ABC123", StudentName: "Kim", RejoinPin: "07"},
		},
		{
			name:    "short code",
			req:     JoinRequest{Code: "AB12", StudentName: "Kim"},
			wantErr: "6-character",
		},
		{
			name:    "missing name",
			req:     JoinRequest{Code: "ABC123", StudentName: "   "},
			wantErr: "enter your name",
		},
		{
			name:    "name too long",
			req:     JoinRequest{Code: "ABC123", StudentName: "a very long student name here"},
			wantErr: "20 characters",
		},
		{
			name:    "pin not two digits",
			req:     JoinRequest{Code: "ABC123", StudentName: "Kim", RejoinPin: "7"},
			wantErr: "2 digits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestJoinRequestValidateNormalizes(t *testing.T) {
	req := JoinRequest{Code: " abc123 ", StudentName: " Kim "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "ABC123", req.Code)
	assert.Equal(t, "Kim", req.StudentName)
}

func TestTurnLogEntryNullableFields(t *testing.T) {
	entry := TurnLogEntry{ActivityKey: "socratic", TurnIndex: 0}
	body, err := Marshal(&entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"activity_key":"socratic","turn_index":0,"student_input":null,"ai_output":null}`, string(body))
}

func TestParseActivityToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"run_id":        float64(42),
		"enrollment_id": float64(7),
		"student_name":  "kim",
		"type":          "activity_token",
		"iat":           time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	claims, err := ParseActivityToken(signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.RunID)
	assert.Equal(t, "kim", claims.StudentName)
}

func TestParseActivityTokenRejectsWrongType(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"type": "refresh"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = ParseActivityToken(signed)
	assert.Error(t, err)
}

func TestLiveSnapshotDecode(t *testing.T) {
	payload := `{
		"status": "LIVE",
		"window_sec": 300,
		"joined_total": 12,
		"active_recent": 9,
		"students": [{"student_name": "kim", "last_seen_at": "2026-08-28T10:00:00Z", "turns_total": 4}]
	}`
	var snap LiveSnapshot
	require.NoError(t, Unmarshal([]byte(payload), &snap))
	assert.Equal(t, RunStatusLive, snap.Status)
	assert.Equal(t, 12, snap.JoinedTotal)
	require.Len(t, snap.Students, 1)
	assert.Equal(t, 4, snap.Students[0].TurnsTotal)
	require.NotNil(t, snap.Students[0].LastSeenAt)
}
