package progress

import (
	"encoding/json"
	"testing"

	"github.com/poiesic/vaultimport/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "starting progress keeps zero chunk",
			event: Progress(0, 3, 0, "starting"),
			want:  `{"type":"progress","currentChunk":0,"totalChunks":3,"totalProcessed":0,"message":"starting"}`,
		},
		{
			name:  "progress complete",
			event: ProgressComplete(3, 5),
			want:  `{"type":"progress","currentChunk":3,"totalChunks":3,"totalProcessed":5,"status":"complete","message":"extraction complete"}`,
		},
		{
			name:  "processing complete",
			event: ProcessingComplete(5),
			want:  `{"type":"processing_complete","totalProcessed":5}`,
		},
		{
			name:  "saving progress",
			event: SavingProgress(2, 5),
			want:  `{"type":"saving_progress","current":2,"total":5}`,
		},
		{
			name:  "success without errors omits them",
			event: Success("Imported 1 credential", 1, nil, nil),
			want:  `{"type":"success","message":"Imported 1 credential","savedCount":1}`,
		},
		{
			name:  "error",
			event: Error("no credentials found"),
			want:  `{"type":"error","message":"no credentials found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEvent_MarshalUnknownKind(t *testing.T) {
	_, err := json.Marshal(Event{Kind: "bogus"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEvent_SuccessCarriesRedactedResult(t *testing.T) {
	result := &core.ImportResult{
		RunID:          "run-1",
		Records:        []core.CredentialRecord{{Name: "Gmail"}},
		TotalProcessed: 2,
		SuccessCount:   1,
		ErrorCount:     1,
		Errors:         []string{`Failed to save "Yahoo": boom`},
	}
	data, err := json.Marshal(Success("Imported 1 credential", 1, result.Errors, result))
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, KindSuccess, decoded.Kind)
	assert.Equal(t, 1, decoded.SavedCount)
	assert.Equal(t, result.Errors, decoded.Errors)
	require.NotNil(t, decoded.Result)
	assert.Equal(t, "run-1", decoded.Result.RunID)
	assert.Equal(t, "Gmail", decoded.Result.Records[0].Name)
	assert.True(t, decoded.Terminal())
}

func TestEvent_UnmarshalRejectsUnknownType(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"type":"mystery"}`), &e)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEvent_Terminal(t *testing.T) {
	assert.False(t, Progress(1, 2, 0, "").Terminal())
	assert.False(t, ProcessingComplete(1).Terminal())
	assert.False(t, SavingProgress(1, 1).Terminal())
	assert.True(t, Success("", 0, nil, nil).Terminal())
	assert.True(t, Error("x").Terminal())
}
