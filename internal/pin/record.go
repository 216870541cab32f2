package pin

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPendingImage          Status = "Generated - Pending Image"
	StatusImageUploaded         Status = "Image Uploaded to GCS"
	StatusUploadFailed          Status = "GCS Upload Failed"
	StatusImageGenerationFailed Status = "Image Generation Failed"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusPendingImage,
	StatusImageUploaded,
	StatusUploadFailed,
	StatusImageGenerationFailed,
}

// Record is one pin's content. JSON keys match the model's output format.
type Record struct {
	Title           string   `json:"Title"`
	Subtitle        string   `json:"Subtitle"`
	Hook            string   `json:"Hook"`
	ImageBackground string   `json:"Image Background"`
	Description     string   `json:"Description"`
	Hashtags        Hashtags `json:"Hashtags"`
	AltText         string   `json:"Alt Text"`
	ImageURL        string   `json:"Image_Url"`
	Status          Status   `json:"Status"`
}

// MissingFields names the content fields the model left empty.
func (r *Record) MissingFields() []string {
	var missing []string
	fields := []struct {
		name  string
		empty bool
	}{
		{"Title", r.Title == ""},
		{"Subtitle", r.Subtitle == ""},
		{"Hook", r.Hook == ""},
		{"Image Background", r.ImageBackground == ""},
		{"Description", r.Description == ""},
		{"Hashtags", len(r.Hashtags) == 0},
		{"Alt Text", r.AltText == ""},
	}
	for _, f := range fields {
		if f.empty {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Hashtags accepts either a JSON array of strings or a single
// whitespace or comma separated string.
type Hashtags []string

func (h *Hashtags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*h = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("hashtags: expected array or string, got %s", data)
	}

	*h = strings.FieldsFunc(single, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	return nil
}

func (h Hashtags) String() string {
	return strings.Join(h, " ")
}

// BatchResult is the outcome of one workflow run.
type BatchResult struct {
	RunID      string    `json:"run_id"`
	Topic      string    `json:"topic"`
	Board      string    `json:"board"`
	TargetURL  string    `json:"target_url"`
	Records    []*Record `json:"records"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (b *BatchResult) Counts() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, r := range b.Records {
		counts[r.Status]++
	}
	return counts
}

func (b *BatchResult) Duration() time.Duration {
	return b.FinishedAt.Sub(b.StartedAt)
}
