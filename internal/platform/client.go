// Package platform provides the typed client for the classroom platform
// REST API. It owns endpoint paths and body encoding; callers own the
// mapping of status codes to behavior where that mapping is theirs to make.
package platform

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/classline/classline/internal/common/apperrors"
	"github.com/classline/classline/internal/common/httpclient"
	"github.com/classline/classline/pkg/api"
)

// Client is a typed client for the classroom platform API.
type Client struct {
	http httpclient.Doer
}

// New creates a platform client over the given transport.
func New(doer httpclient.Doer) *Client {
	return &Client{http: doer}
}

// Join performs the student join/rejoin flow. Input is validated before any
// network call. A 409 whose body carries {"detail":{"error":"requires_pin"}}
// maps to ErrRequiresPin so callers can resubmit with the PIN.
func (c *Client) Join(ctx context.Context, req *api.JoinRequest) (*api.JoinResponse, apperrors.Error) {
	if err := req.Validate(); err != nil {
		return nil, ErrInvalidInput.Msg(err.Error())
	}

	body, err := api.Marshal(req)
	if err != nil {
		return nil, ErrInvalidInput.Err(err)
	}

	resp, err := c.http.Do(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "api/join",
		Body:   body,
	})
	if err != nil {
		return nil, ErrPlatform.Err(err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var joinResp api.JoinResponse
		if err := api.Unmarshal(resp.Body, &joinResp); err != nil {
			return nil, ErrPlatform.Msg("failed to parse join response").Err(err)
		}
		return &joinResp, nil
	case http.StatusBadRequest:
		return nil, ErrInvalidInput.Err(resp.Err())
	case http.StatusUnauthorized:
		return nil, ErrWrongPin
	case http.StatusForbidden:
		return nil, ErrSessionFull
	case http.StatusNotFound:
		return nil, ErrInvalidCode
	case http.StatusConflict:
		if gjson.GetBytes(resp.Body, "detail.error").String() == "requires_pin" {
			return nil, ErrRequiresPin
		}
		return nil, ErrPlatform.Err(resp.Err())
	case http.StatusGone:
		return nil, ErrSessionEnded
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		return nil, ErrPlatform.Err(resp.Err())
	}
}

// SessionStatus probes whether the session bound to the activity token is
// still open. Returns the raw HTTP status; 200 means alive, 410 means ended.
// Transport failures are returned as errors with a zero status.
func (c *Client) SessionStatus(ctx context.Context, token string) (int, error) {
	resp, err := c.http.Do(ctx, httpclient.RequestOptions{
		Method: http.MethodGet,
		Path:   "api/session/status",
		Token:  token,
	})
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// LogTurn posts one turn of interaction. The opaque evaluation blob, when
// present and valid JSON, is spliced into the body raw; otherwise the field
// is sent as null. Returns the raw HTTP status for the dispatcher to map.
func (c *Client) LogTurn(ctx context.Context, token string, entry *api.TurnLogEntry) (int, error) {
	body, err := api.Marshal(entry)
	if err != nil {
		return 0, err
	}
	body, err = sjson.SetRawBytes(body, "third_eval_json", []byte("null"))
	if err != nil {
		return 0, err
	}
	if entry.Evaluation != "" {
		if !gjson.Valid(entry.Evaluation) {
			log.Warn().Str("activity_key", entry.ActivityKey).Int("turn_index", entry.TurnIndex).
				Msg("dropping malformed evaluation JSON from turn log")
		} else if body, err = sjson.SetRawBytes(body, "third_eval_json", []byte(entry.Evaluation)); err != nil {
			return 0, err
		}
	}

	resp, err := c.http.Do(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "api/activity-log",
		Body:   body,
		Token:  token,
	})
	if err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

// LiveSnapshot fetches the teacher-facing view of a run. The snapshot is
// non-nil only for a 200 response; callers inspect the status for 410 and
// 429 handling. Authentication uses the configured teacher credential.
func (c *Client) LiveSnapshot(ctx context.Context, runID int64, windowSec int) (*api.LiveSnapshot, int, error) {
	resp, err := c.http.Do(ctx, httpclient.RequestOptions{
		Method:      http.MethodGet,
		Path:        "api/runs/" + strconv.FormatInt(runID, 10) + "/live-snapshot",
		QueryParams: map[string]string{"window_sec": strconv.Itoa(windowSec)},
	})
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var snap api.LiveSnapshot
	if err := api.Unmarshal(resp.Body, &snap); err != nil {
		return nil, resp.StatusCode, err
	}
	return &snap, resp.StatusCode, nil
}
