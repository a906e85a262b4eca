package gateway

import (
	"encoding/json"
	"testing"

	"github.com/mcdev12/pomodoro/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"canonical", `{"command":"reset_progress"}`, CommandResetProgress, false},
		{"lowercase alias", `{"command":"resetprogress"}`, CommandResetProgress, false},
		{"mixed case", `{"command":"ListBlocked"}`, CommandListBlocked, false},
		{"dashes", `{"command":"reset-config"}`, CommandResetConfig, false},
		{"block with url", `{"command":"block","url":"example.com"}`, CommandBlock, false},
		{"block without url", `{"command":"block"}`, "", true},
		{"update without config", `{"command":"updateconfig"}`, "", true},
		{"unknown", `{"command":"explode"}`, "", true},
		{"missing command", `{"url":"x"}`, "", true},
		{"not json", `start`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.raw))
			if tt.wantErr {
				var malformed *MalformedCommandError
				assert.ErrorAs(t, err, &malformed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Command)
		})
	}
}

func TestParseRequest_KeepsRequestIDOnError(t *testing.T) {
	req, err := ParseRequest([]byte(`{"command":"nope","request_id":"abc"}`))
	require.Error(t, err)
	assert.Equal(t, "abc", req.RequestID)
}

func TestParseRequest_UpdateConfig(t *testing.T) {
	raw := `{"command":"update_config","new_config":{"work_duration":60,"break_duration":10,"long_break_duration":20,"cycles":2,"current_cycle":0,"is_running":false,"long_break_interval":2,"time_left":60,"current_phase":"Work"}}`

	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, req.NewConfig)
	assert.Equal(t, 60, req.NewConfig.WorkDuration)
	assert.Equal(t, models.PhaseWork, req.NewConfig.CurrentPhase)
}

func TestStatusResponse_Flattened(t *testing.T) {
	data, err := json.Marshal(StatusResponse(models.DefaultSessionConfig(), []string{"example.com"}))
	require.NoError(t, err)

	var decoded struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Status", decoded.Type)
	assert.Equal(t, float64(models.DefaultWorkDuration), decoded.Data["work_duration"])
	assert.Equal(t, "Work", decoded.Data["current_phase"])
	assert.Equal(t, []interface{}{"example.com"}, decoded.Data["blocked_urls"])

	data, err = json.Marshal(StatusResponse(models.DefaultSessionConfig(), nil))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "blocked_urls")
	assert.NotContains(t, string(data), "request_id")
}
