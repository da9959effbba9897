// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package progress

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/vaultimport/core"
)

// Kind discriminates the event union. It is the "type" field on the wire.
type Kind string

const (
	KindProgress           Kind = "progress"
	KindProcessingComplete Kind = "processing_complete"
	KindSavingProgress     Kind = "saving_progress"
	KindSuccess            Kind = "success"
	KindError              Kind = "error"
)

// StatusComplete marks the progress event sent after the last chunk.
const StatusComplete = "complete"

// Event is one progress notification. Which fields are meaningful depends on Kind.
type Event struct {
	Kind Kind

	// progress
	CurrentChunk int
	TotalChunks  int
	Status       string

	// progress, processing_complete
	TotalProcessed int

	// saving_progress
	Current int
	Total   int

	// success
	SavedCount int
	Errors     []string
	Result     *core.ImportResult

	// progress, success, error
	Message string
}

// Terminal reports whether e ends a run.
func (e Event) Terminal() bool {
	return e.Kind == KindSuccess || e.Kind == KindError
}

// Progress reports that chunk current of total has been processed.
func Progress(current, total, totalProcessed int, message string) Event {
	return Event{
		Kind:           KindProgress,
		CurrentChunk:   current,
		TotalChunks:    total,
		TotalProcessed: totalProcessed,
		Message:        message,
	}
}

// ProgressComplete is the progress event that follows the last chunk.
func ProgressComplete(totalChunks, totalProcessed int) Event {
	return Event{
		Kind:           KindProgress,
		CurrentChunk:   totalChunks,
		TotalChunks:    totalChunks,
		TotalProcessed: totalProcessed,
		Status:         StatusComplete,
		Message:        "extraction complete",
	}
}

// ProcessingComplete reports how many records extraction produced.
func ProcessingComplete(totalProcessed int) Event {
	return Event{Kind: KindProcessingComplete, TotalProcessed: totalProcessed}
}

// SavingProgress reports that the current-th of total records has been attempted.
func SavingProgress(current, total int) Event {
	return Event{Kind: KindSavingProgress, Current: current, Total: total}
}

// Success is the terminal event of a run that reached persistence.
func Success(message string, savedCount int, errs []string, result *core.ImportResult) Event {
	return Event{
		Kind:       KindSuccess,
		Message:    message,
		SavedCount: savedCount,
		Errors:     errs,
		Result:     result,
	}
}

// Error is the terminal event of a run that failed before or during persistence.
func Error(message string) Event {
	return Event{Kind: KindError, Message: message}
}

type progressJSON struct {
	Type           Kind   `json:"type"`
	CurrentChunk   int    `json:"currentChunk"`
	TotalChunks    int    `json:"totalChunks"`
	TotalProcessed int    `json:"totalProcessed"`
	Status         string `json:"status,omitempty"`
	Message        string `json:"message,omitempty"`
}

type processingCompleteJSON struct {
	Type           Kind `json:"type"`
	TotalProcessed int  `json:"totalProcessed"`
}

type savingProgressJSON struct {
	Type    Kind `json:"type"`
	Current int  `json:"current"`
	Total   int  `json:"total"`
}

type successJSON struct {
	Type       Kind               `json:"type"`
	Message    string             `json:"message"`
	SavedCount int                `json:"savedCount"`
	Errors     []string           `json:"errors,omitempty"`
	Result     *core.ImportResult `json:"result,omitempty"`
}

type errorJSON struct {
	Type    Kind   `json:"type"`
	Message string `json:"message"`
}

// MarshalJSON encodes only the fields that belong to e.Kind.
// Zero counts are kept so clients can tell "0 of N" from "absent".
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindProgress:
		return json.Marshal(progressJSON{
			Type:           e.Kind,
			CurrentChunk:   e.CurrentChunk,
			TotalChunks:    e.TotalChunks,
			TotalProcessed: e.TotalProcessed,
			Status:         e.Status,
			Message:        e.Message,
		})
	case KindProcessingComplete:
		return json.Marshal(processingCompleteJSON{Type: e.Kind, TotalProcessed: e.TotalProcessed})
	case KindSavingProgress:
		return json.Marshal(savingProgressJSON{Type: e.Kind, Current: e.Current, Total: e.Total})
	case KindSuccess:
		return json.Marshal(successJSON{
			Type:       e.Kind,
			Message:    e.Message,
			SavedCount: e.SavedCount,
			Errors:     e.Errors,
			Result:     e.Result,
		})
	case KindError:
		return json.Marshal(errorJSON{Type: e.Kind, Message: e.Message})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

// UnmarshalJSON decodes any event kind.
func (e *Event) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type           Kind               `json:"type"`
		CurrentChunk   int                `json:"currentChunk"`
		TotalChunks    int                `json:"totalChunks"`
		TotalProcessed int                `json:"totalProcessed"`
		Status         string             `json:"status"`
		Current        int                `json:"current"`
		Total          int                `json:"total"`
		SavedCount     int                `json:"savedCount"`
		Errors         []string           `json:"errors"`
		Result         *core.ImportResult `json:"result"`
		Message        string             `json:"message"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case KindProgress, KindProcessingComplete, KindSavingProgress, KindSuccess, KindError:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, wire.Type)
	}
	*e = Event{
		Kind:           wire.Type,
		CurrentChunk:   wire.CurrentChunk,
		TotalChunks:    wire.TotalChunks,
		TotalProcessed: wire.TotalProcessed,
		Status:         wire.Status,
		Current:        wire.Current,
		Total:          wire.Total,
		SavedCount:     wire.SavedCount,
		Errors:         wire.Errors,
		Result:         wire.Result,
		Message:        wire.Message,
	}
	return nil
}
