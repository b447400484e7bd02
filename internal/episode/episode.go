package episode

import (
	"encoding/json"
	"fmt"
	"strings"

	"podsum/internal/services"
)

// Episode is one podcast installment as received by the pipeline.
type Episode struct {
	Title      string
	Published  string
	EpisodeURL string
	AudioURL   string
}

// Event is the inbound JSON payload accepted from the webhook listener, the
// feed poller, and the process command. Extra fields sent by upstream
// triggers are tolerated and ignored.
type Event struct {
	Title      string `json:"title"`
	Published  string `json:"published"`
	EpisodeURL string `json:"episodeUrl,omitempty"`
	AudioURL   string `json:"audioUrl,omitempty"`

	TaskType string `json:"taskType,omitempty"`
	Source   string `json:"source,omitempty"`
	RSSURL   string `json:"rssUrl,omitempty"`
}

// ParseEvent decodes a JSON payload. Missing or blank titles are rejected
// with services.ErrInvalidInput.
func ParseEvent(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, services.Wrap(services.ErrInvalidInput, "event", "decode", "payload is not a JSON object", err)
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Validate checks the hard requirements on an inbound event.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return services.Wrap(services.ErrInvalidInput, "event", "validate", "title is required", nil)
	}
	return nil
}

// Episode converts the event into the pipeline's unit of work.
func (e Event) Episode() Episode {
	return Episode{
		Title:      strings.TrimSpace(e.Title),
		Published:  strings.TrimSpace(e.Published),
		EpisodeURL: strings.TrimSpace(e.EpisodeURL),
		AudioURL:   strings.TrimSpace(e.AudioURL),
	}
}

func (e Episode) String() string {
	if e.Published == "" {
		return e.Title
	}
	return fmt.Sprintf("%s (%s)", e.Title, e.Published)
}
